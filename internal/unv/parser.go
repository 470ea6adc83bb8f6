// Package unv reads FRF records from Universal File text. Parse targets the
// simplified dataset 58 headers emitted by reconstruction tools and recovers
// what it can from damaged payloads; ParseWithFallback retries failures
// through the strict dataset reader in internal/uff.
package unv

import (
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/RMahshie/emav/internal/uff"
	"github.com/RMahshie/emav/pkg/models"
)

const (
	delimiter       = "-1"
	functionDataset = "58"

	minCharacteristicTokens  = 3
	fullCharacteristicTokens = 6
	axisDefinitionLines      = 4
	payloadScanWindow        = 100
	valuesPerPoint           = 2
	safetyLinesPerPoint      = 3
)

type state int

const (
	seekingMarker state = iota
	readingHeader
	seekingPayload
	accumulating
	done
)

func (s state) String() string {
	return [...]string{"seeking_marker", "reading_header", "seeking_payload", "accumulating", "done"}[s]
}

// Result is a parsed record together with how it was recovered.
type Result struct {
	Record      models.Record
	Diagnostics models.ParseDiagnostics
}

type characteristics struct {
	dataType        int
	pointCount      int
	spacingType     int
	xMin            float64
	xIncrementOrMax float64
}

type parser struct {
	lines []string
	pos   int
	state state

	description string
	header      characteristics
	values      []float64
	diag        models.ParseDiagnostics
}

// Parse extracts the first dataset 58 record of raw. Short payloads are
// zero-padded rather than rejected; Diagnostics says when that happened.
func Parse(raw string) (*Result, error) {
	p := &parser{
		lines: splitLines(raw),
		state: seekingMarker,
		diag:  models.ParseDiagnostics{Tier: models.TierResilient, MarkerLine: -1, PayloadLine: -1},
	}

	for p.state != done {
		var err error
		switch p.state {
		case seekingMarker:
			err = p.seekMarker()
		case readingHeader:
			err = p.readHeader()
		case seekingPayload:
			err = p.seekPayload()
		case accumulating:
			p.accumulate()
		}
		if err != nil {
			log.Debug().Str("state", p.state.String()).Err(err).Msg("resilient parse failed")
			return nil, err
		}
	}

	return p.build()
}

func splitLines(raw string) []string {
	lines := strings.Split(raw, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, "\r")
	}
	return lines
}

func (p *parser) seekMarker() error {
	for i := 0; i+1 < len(p.lines); i++ {
		if strings.TrimSpace(p.lines[i]) == delimiter && strings.TrimSpace(p.lines[i+1]) == functionDataset {
			p.diag.MarkerLine = i
			p.pos = i + 2
			p.state = readingHeader
			log.Debug().Int("marker_line", i).Msg("found dataset 58 marker")
			return nil
		}
	}
	return formatErr(-1, "no dataset 58 marker found", nil)
}

func (p *parser) readHeader() error {
	if p.pos >= len(p.lines) {
		return formatErr(p.pos, "missing header line after dataset marker", nil)
	}
	p.description = strings.TrimSpace(p.lines[p.pos])
	p.pos++

	if p.pos >= len(p.lines) {
		return formatErr(p.pos, "missing data characteristic line", nil)
	}
	tokens := strings.Fields(p.lines[p.pos])
	if len(tokens) < minCharacteristicTokens {
		return formatErr(p.pos, "invalid data characteristic line: need at least 3 fields, got "+strconv.Itoa(len(tokens)), nil)
	}

	var ints [minCharacteristicTokens]int
	for i := range ints {
		v, err := strconv.Atoi(tokens[i])
		if err != nil {
			return formatErr(p.pos, "invalid data characteristic field "+strconv.Quote(tokens[i]), err)
		}
		ints[i] = v
	}
	p.header = characteristics{
		dataType:        ints[0],
		pointCount:      ints[1],
		spacingType:     ints[2],
		xMin:            0.0,
		xIncrementOrMax: 1.0,
	}
	if p.header.pointCount < 1 {
		return formatErr(p.pos, "point count must be positive, got "+tokens[1], nil)
	}
	if p.header.pointCount > uff.MaxPoints {
		return formatErr(p.pos, "point count "+tokens[1]+" exceeds the limit of "+strconv.Itoa(uff.MaxPoints), nil)
	}

	if len(tokens) >= fullCharacteristicTokens {
		xMin, err := strconv.ParseFloat(tokens[3], 64)
		if err != nil {
			return formatErr(p.pos, "invalid abscissa minimum "+strconv.Quote(tokens[3]), err)
		}
		xInc, err := strconv.ParseFloat(tokens[4], 64)
		if err != nil {
			return formatErr(p.pos, "invalid abscissa increment "+strconv.Quote(tokens[4]), err)
		}
		if !finite(xMin) || !finite(xInc) {
			return formatErr(p.pos, "non-finite abscissa definition", nil)
		}
		p.header.xMin, p.header.xIncrementOrMax = xMin, xInc
	}

	p.pos += 1 + axisDefinitionLines
	p.diag.ValuesExpected = p.header.pointCount * valuesPerPoint
	p.state = seekingPayload
	return nil
}

// seekPayload looks for the first line carrying an exponent marker whose
// leading two tokens are numbers.
func (p *parser) seekPayload() error {
	start := p.pos
	for ; p.pos < len(p.lines); p.pos++ {
		if p.pos-start >= payloadScanWindow {
			return formatErr(p.pos, "could not find data section within 100 lines", nil)
		}
		line := strings.TrimSpace(p.lines[p.pos])
		if !strings.ContainsAny(line, "eE") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}
		if _, err := strconv.ParseFloat(parts[0], 64); err != nil {
			continue
		}
		if _, err := strconv.ParseFloat(parts[1], 64); err != nil {
			continue
		}
		p.diag.PayloadLine = p.pos
		p.state = accumulating
		log.Debug().Int("payload_line", p.pos).Int("points", p.header.pointCount).Msg("found data section")
		return nil
	}
	return formatErr(p.pos, "could not locate data section", nil)
}

// accumulate never fails: unparseable tokens are skipped and a runaway
// payload is cut at the line safety bound.
func (p *parser) accumulate() {
	need := p.diag.ValuesExpected
	maxLines := p.header.pointCount * safetyLinesPerPoint
	linesParsed := 0

	for p.pos < len(p.lines) && len(p.values) < need {
		line := strings.TrimSpace(p.lines[p.pos])
		if line == delimiter {
			break
		}
		p.pos++
		if line == "" {
			continue
		}
		for _, tok := range strings.Fields(line) {
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				p.diag.SkippedTokens++
				continue
			}
			p.values = append(p.values, v)
		}
		linesParsed++
		if linesParsed > maxLines {
			if len(p.values) < need {
				p.diag.SafetyBoundHit = true
				log.Warn().Int("lines_parsed", linesParsed).Int("values", len(p.values)).Msg("payload exceeded line safety bound")
			}
			break
		}
	}

	p.diag.ValuesCollected = len(p.values)
	if len(p.values) < need {
		p.diag.PaddedValues = need - len(p.values)
		log.Warn().
			Int("values_collected", len(p.values)).
			Int("values_expected", need).
			Msg("short payload, padding with zeros")
		p.values = append(p.values, make([]float64, need-len(p.values))...)
	}
	p.values = p.values[:need]
	p.state = done
}

func (p *parser) build() (*Result, error) {
	h := p.header
	columns := make([][2]float64, h.pointCount)
	for i := range columns {
		columns[i] = [2]float64{p.values[2*i], p.values[2*i+1]}
	}

	rec := models.Record{
		Kind:        models.KindFunction,
		DataType:    h.dataType,
		Shape:       models.ShapeTwoColumn,
		PointCount:  h.pointCount,
		Frequencies: frequencyAxis(h),
		Columns:     columns,
		Meta:        models.RecordMeta{Description: p.description},
	}
	if err := rec.Validate(); err != nil {
		return nil, formatErr(-1, "record failed validation", err)
	}

	log.Debug().
		Int("points", h.pointCount).
		Float64("x_first", rec.Frequencies[0]).
		Float64("x_last", rec.Frequencies[h.pointCount-1]).
		Int("padded", p.diag.PaddedValues).
		Msg("parsed dataset 58 record")

	return &Result{Record: rec, Diagnostics: p.diag}, nil
}

// frequencyAxis reads the two header reals either as endpoints or as start
// and step. Producing tools disagree on which; an upper value more than one
// unit above the start under even spacing is taken as an endpoint.
func frequencyAxis(h characteristics) []float64 {
	n := h.pointCount
	x := make([]float64, n)

	if h.spacingType == 1 && h.xIncrementOrMax > h.xMin+1 {
		x[0] = h.xMin
		if n == 1 {
			return x
		}
		step := (h.xIncrementOrMax - h.xMin) / float64(n-1)
		for k := 1; k < n-1; k++ {
			x[k] = h.xMin + float64(k)*step
		}
		x[n-1] = h.xIncrementOrMax
		return x
	}

	for k := range x {
		x[k] = float64(k)*h.xIncrementOrMax + h.xMin
	}
	return x
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
