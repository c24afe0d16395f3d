// Package feed reads and writes the CSV formats flowing in and out of the
// simulator: raw order-book message dumps on the way in, reconstructed
// snapshot series on the way out and back in again for replay.
package feed

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ekinoksoz/lobsim/internal/domain"
)

// Message dump column names, as produced by the exchange capture.
var messageColumns = []string{
	"network_time",
	"bist_time",
	"msg_type",
	"asset",
	"side",
	"price",
	"que_loc",
	"qty",
	"order_id",
}

// Timestamp layouts accepted on input, tried in order.
var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("feed: unparseable timestamp %q", s)
}

// MessageReader decodes a raw message dump. Rows with an unknown message
// type, a bad side, or unparseable numeric fields are logged and skipped so
// one corrupt capture line cannot abort a multi-hour replay.
type MessageReader struct {
	csv        *csv.Reader
	cols       map[string]int
	priceScale int64
	logger     *slog.Logger

	line    int
	skipped int
}

// NewMessageReader reads the header row and validates that every required
// column is present.
func NewMessageReader(r io.Reader, priceScale int64, logger *slog.Logger) (*MessageReader, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("feed: read message header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	var missing []string
	for _, name := range messageColumns {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &domain.SchemaError{Missing: missing}
	}

	if priceScale <= 0 {
		priceScale = 1
	}
	return &MessageReader{
		csv:        cr,
		cols:       cols,
		priceScale: priceScale,
		logger:     logger.With(slog.String("component", "feed")),
	}, nil
}

// Skipped reports how many rows were dropped as malformed so far.
func (mr *MessageReader) Skipped() int { return mr.skipped }

// Read returns the next well-formed message, skipping malformed rows. It
// returns io.EOF once the input is exhausted.
func (mr *MessageReader) Read() (domain.Message, error) {
	for {
		row, err := mr.csv.Read()
		if err != nil {
			return domain.Message{}, err
		}
		mr.line++

		msg, err := mr.parseRow(row)
		if err != nil {
			mr.skipped++
			mr.logger.Warn("skipping malformed message row",
				slog.Int("line", mr.line),
				slog.String("error", err.Error()),
			)
			continue
		}
		return msg, nil
	}
}

// ReadAll drains the reader into a slice.
func (mr *MessageReader) ReadAll() ([]domain.Message, error) {
	var out []domain.Message
	for {
		msg, err := mr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, msg)
	}
}

// Stream sends messages to out until the input is exhausted or ctx is
// cancelled. It closes out on return, which is the upstream half of the
// pipelined replay mode.
func (mr *MessageReader) Stream(ctx context.Context, out chan<- domain.Message) error {
	defer close(out)
	for {
		msg, err := mr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- msg:
		}
	}
}

func (mr *MessageReader) parseRow(row []string) (domain.Message, error) {
	field := func(name string) string {
		i := mr.cols[name]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	seqTime, err := parseTime(field("bist_time"))
	if err != nil {
		return domain.Message{}, err
	}
	netTime, err := parseTime(field("network_time"))
	if err != nil {
		return domain.Message{}, err
	}
	kind, err := domain.ParseMsgKind(field("msg_type"))
	if err != nil {
		return domain.Message{}, err
	}
	side, err := domain.ParseSide(field("side"))
	if err != nil {
		return domain.Message{}, err
	}
	price, err := parsePrice(field("price"), mr.priceScale)
	if err != nil {
		return domain.Message{}, err
	}
	qty, err := strconv.ParseInt(field("qty"), 10, 64)
	if err != nil {
		return domain.Message{}, fmt.Errorf("feed: qty: %w", err)
	}
	orderID, err := strconv.ParseUint(field("order_id"), 10, 64)
	if err != nil {
		return domain.Message{}, fmt.Errorf("feed: order_id: %w", err)
	}

	return domain.Message{
		SeqTime: seqTime,
		NetTime: netTime,
		Kind:    kind,
		Asset:   field("asset"),
		Side:    side,
		Price:   price,
		Qty:     qty,
		OrderID: orderID,
	}, nil
}

// parsePrice converts a currency-unit price string to integer ticks.
func parsePrice(s string, scale int64) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("feed: price: %w", err)
	}
	ticks := d.Mul(decimal.NewFromInt(scale))
	if !ticks.IsInteger() {
		return 0, fmt.Errorf("feed: price %s is finer than tick scale %d", s, scale)
	}
	return ticks.IntPart(), nil
}

// formatPrice converts integer ticks back to a currency-unit string.
func formatPrice(ticks, scale int64) string {
	return decimal.NewFromInt(ticks).Div(decimal.NewFromInt(scale)).String()
}
