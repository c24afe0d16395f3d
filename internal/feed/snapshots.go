package feed

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ekinoksoz/lobsim/internal/domain"
)

// Snapshot series column names. The first fourteen are required on input;
// the last-execution pair is optional and read as zero when absent.
var snapshotColumns = []string{
	"Date",
	"Asset",
	"bid1qty", "bid1px",
	"bid2qty", "bid2px",
	"bid3qty", "bid3px",
	"ask1px", "ask1qty",
	"ask2px", "ask2qty",
	"ask3px", "ask3qty",
	"Mold Package",
}

var snapshotExtraColumns = []string{"last_exec_px", "last_exec_qty"}

const snapshotTimeLayout = "2006-01-02 15:04:05.999999999"

// SnapshotWriter serializes a snapshot series to CSV.
type SnapshotWriter struct {
	csv        *csv.Writer
	priceScale int64
	wroteHdr   bool
}

// NewSnapshotWriter creates a writer emitting prices in currency units at
// the given tick scale.
func NewSnapshotWriter(w io.Writer, priceScale int64) *SnapshotWriter {
	if priceScale <= 0 {
		priceScale = 1
	}
	return &SnapshotWriter{csv: csv.NewWriter(w), priceScale: priceScale}
}

// Write appends one snapshot row, writing the header first if needed.
func (sw *SnapshotWriter) Write(snap domain.Snapshot) error {
	if !sw.wroteHdr {
		header := append(append([]string{}, snapshotColumns...), snapshotExtraColumns...)
		if err := sw.csv.Write(header); err != nil {
			return fmt.Errorf("feed: write snapshot header: %w", err)
		}
		sw.wroteHdr = true
	}

	row := []string{
		snap.Time.Format(snapshotTimeLayout),
		snap.Asset,
	}
	for _, lvl := range snap.Bids {
		row = append(row, strconv.FormatInt(lvl.Qty, 10), formatLevelPrice(lvl, sw.priceScale))
	}
	for _, lvl := range snap.Asks {
		row = append(row, formatLevelPrice(lvl, sw.priceScale), strconv.FormatInt(lvl.Qty, 10))
	}
	row = append(row,
		formatListing(snap.Depth, sw.priceScale),
		formatPrice(snap.LastExecPrice, sw.priceScale),
		strconv.FormatInt(snap.LastExecQty, 10),
	)

	if err := sw.csv.Write(row); err != nil {
		return fmt.Errorf("feed: write snapshot row: %w", err)
	}
	return nil
}

// WriteAll writes the whole series and flushes.
func (sw *SnapshotWriter) WriteAll(snaps []domain.Snapshot) error {
	for _, snap := range snaps {
		if err := sw.Write(snap); err != nil {
			return err
		}
	}
	return sw.Flush()
}

// Flush flushes buffered rows to the underlying writer.
func (sw *SnapshotWriter) Flush() error {
	sw.csv.Flush()
	return sw.csv.Error()
}

func formatLevelPrice(lvl domain.Level, scale int64) string {
	if lvl.Zero() {
		return "0"
	}
	return formatPrice(lvl.Price, scale)
}

// formatListing renders the resting orders at the visible levels in compact
// form: "A-{side}-{price}-{qty}-{order_id}" entries joined by semicolons.
func formatListing(depth []domain.BookOrder, scale int64) string {
	parts := make([]string, 0, len(depth))
	for _, o := range depth {
		parts = append(parts, fmt.Sprintf("A-%s-%s-%d-%d",
			o.Side.String(), formatPrice(o.Price, scale), o.Qty, o.OrderID))
	}
	return strings.Join(parts, ";")
}

// SnapshotReader decodes a snapshot series. The constructor fails fast with
// a SchemaError when any required column is missing, so a backtest never
// starts against an incomplete book source.
type SnapshotReader struct {
	csv        *csv.Reader
	cols       map[string]int
	priceScale int64
}

// NewSnapshotReader reads the header row and validates the schema.
func NewSnapshotReader(r io.Reader, priceScale int64) (*SnapshotReader, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("feed: read snapshot header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	var missing []string
	for _, name := range snapshotColumns {
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
	return &SnapshotReader{csv: cr, cols: cols, priceScale: priceScale}, nil
}

// Read returns the next snapshot, or io.EOF when the input is exhausted.
func (sr *SnapshotReader) Read() (domain.Snapshot, error) {
	row, err := sr.csv.Read()
	if err != nil {
		return domain.Snapshot{}, err
	}
	return sr.parseRow(row)
}

// ReadAll drains the reader into a slice.
func (sr *SnapshotReader) ReadAll() ([]domain.Snapshot, error) {
	var out []domain.Snapshot
	for {
		snap, err := sr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, snap)
	}
}

func (sr *SnapshotReader) parseRow(row []string) (domain.Snapshot, error) {
	field := func(name string) string {
		i, ok := sr.cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	ts, err := parseTime(field("Date"))
	if err != nil {
		return domain.Snapshot{}, err
	}

	snap := domain.Snapshot{Time: ts, Asset: field("Asset")}
	for i := 0; i < domain.SnapshotDepth; i++ {
		n := strconv.Itoa(i + 1)
		snap.Bids[i], err = sr.parseLevel(field("bid"+n+"px"), field("bid"+n+"qty"))
		if err != nil {
			return domain.Snapshot{}, err
		}
		snap.Asks[i], err = sr.parseLevel(field("ask"+n+"px"), field("ask"+n+"qty"))
		if err != nil {
			return domain.Snapshot{}, err
		}
	}

	snap.Depth, err = parseListing(field("Mold Package"), sr.priceScale)
	if err != nil {
		return domain.Snapshot{}, err
	}

	if s := field("last_exec_px"); s != "" {
		if snap.LastExecPrice, err = parsePrice(s, sr.priceScale); err != nil {
			return domain.Snapshot{}, err
		}
	}
	if s := field("last_exec_qty"); s != "" {
		if snap.LastExecQty, err = strconv.ParseInt(s, 10, 64); err != nil {
			return domain.Snapshot{}, fmt.Errorf("feed: last_exec_qty: %w", err)
		}
	}
	return snap, nil
}

func (sr *SnapshotReader) parseLevel(px, qty string) (domain.Level, error) {
	if px == "" || px == "0" {
		return domain.Level{}, nil
	}
	price, err := parsePrice(px, sr.priceScale)
	if err != nil {
		return domain.Level{}, err
	}
	q, err := strconv.ParseInt(qty, 10, 64)
	if err != nil {
		return domain.Level{}, fmt.Errorf("feed: level qty: %w", err)
	}
	return domain.Level{Price: price, Qty: q}, nil
}

func parseListing(s string, scale int64) ([]domain.BookOrder, error) {
	if s == "" {
		return nil, nil
	}
	var out []domain.BookOrder
	for _, part := range strings.Split(s, ";") {
		fields := strings.Split(part, "-")
		if len(fields) != 5 || fields[0] != "A" {
			return nil, fmt.Errorf("feed: malformed book listing entry %q", part)
		}
		side, err := domain.ParseSide(fields[1])
		if err != nil {
			return nil, err
		}
		price, err := parsePrice(fields[2], scale)
		if err != nil {
			return nil, err
		}
		qty, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("feed: listing qty: %w", err)
		}
		id, err := strconv.ParseUint(fields[4], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("feed: listing order_id: %w", err)
		}
		out = append(out, domain.BookOrder{Side: side, Price: price, Qty: qty, OrderID: id})
	}
	return out, nil
}
