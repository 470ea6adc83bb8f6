package uff

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

type block struct {
	head string
	line int
	body []string
}

// ReadAll reads every dataset block of r. Only I/O failures are returned as
// errors; per-block problems are recorded on the Dataset.
func ReadAll(r io.Reader) ([]Dataset, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	blocks := splitBlocks(lines)
	datasets := make([]Dataset, 0, len(blocks))
	for _, b := range blocks {
		datasets = append(datasets, readBlock(b))
	}
	return datasets, nil
}

// Functions returns the successfully parsed dataset 58 records in file order.
func Functions(datasets []Dataset) []*Function {
	var out []*Function
	for _, ds := range datasets {
		if ds.Function != nil {
			out = append(out, ds.Function)
		}
	}
	return out
}

// splitBlocks cuts lines into delimited datasets. Runs of consecutive
// delimiters are tolerated; the last one opens the block.
func splitBlocks(lines []string) []block {
	var blocks []block
	i := 0
	for i < len(lines) {
		if strings.TrimSpace(lines[i]) != delimiter {
			i++
			continue
		}
		i++
		if i >= len(lines) {
			break
		}
		head := strings.TrimSpace(lines[i])
		if head == delimiter {
			continue
		}
		end := i + 1
		for end < len(lines) && strings.TrimSpace(lines[end]) != delimiter {
			end++
		}
		blocks = append(blocks, block{head: head, line: i, body: lines[i+1 : end]})
		i = end + 1
	}
	return blocks
}

func readBlock(b block) Dataset {
	ds := Dataset{Type: -1, Line: b.line, Lines: b.body}

	fields := strings.Fields(b.head)
	if len(fields) == 0 {
		ds.Err = malformed(b.line, "empty dataset type line")
		return ds
	}
	typ, err := strconv.Atoi(fields[0])
	if err != nil {
		ds.Err = malformed(b.line, "invalid dataset type %q", fields[0])
		return ds
	}
	ds.Type = typ

	// A trailing "b" marks binary payloads, which this reader does not decode.
	if len(fields) > 1 && strings.EqualFold(fields[1], "b") {
		ds.Err = malformed(b.line, "binary dataset %d not supported", typ)
		return ds
	}

	switch typ {
	case TypeFunction:
		ds.Function, ds.Err = readFunction(b.body, b.line+1)
	case TypeHeader:
		ds.Header = readHeader(b.body)
	}
	return ds
}

func readHeader(body []string) *Header {
	h := &Header{}
	targets := []*string{&h.ModelName, &h.Description, &h.DBApp, &h.DateCreated, &h.Program}
	for i, t := range targets {
		if i < len(body) {
			*t = strings.TrimSpace(body[i])
		}
	}
	return h
}

const functionHeaderRecords = 11

func readFunction(body []string, first int) (*Function, error) {
	if len(body) < functionHeaderRecords {
		return nil, malformed(first, "dataset 58 needs %d header records, found %d", functionHeaderRecords, len(body))
	}

	f := &Function{
		ID1: strings.TrimSpace(body[0]),
		ID2: strings.TrimSpace(body[1]),
		ID3: strings.TrimSpace(body[2]),
		ID4: strings.TrimSpace(body[3]),
		ID5: strings.TrimSpace(body[4]),
	}
	readDOF(f, body[5])

	if err := readCharacteristics(f, body[6], first+6); err != nil {
		return nil, err
	}
	f.Abscissa = readAxis(body[7])
	f.Ordinate = readAxis(body[8])
	f.OrdinateDenom = readAxis(body[9])
	f.ZAxis = readAxis(body[10])

	values, err := readNumbers(body[functionHeaderRecords:], first+functionHeaderRecords)
	if err != nil {
		return nil, err
	}
	if err := f.fill(values); err != nil {
		return nil, malformed(first+functionHeaderRecords, "%v", err)
	}
	return f, nil
}

// readDOF parses record 6. The record is metadata only, so fields that do
// not parse are left zero.
func readDOF(f *Function, line string) {
	fields := strings.Fields(line)
	if len(fields) == 10 {
		f.FuncType = atoiOrZero(fields[0])
		f.FuncID = atoiOrZero(fields[1])
		f.VerNum = atoiOrZero(fields[2])
		f.LoadCaseID = atoiOrZero(fields[3])
		f.RspEntName = fields[4]
		f.RspNode = atoiOrZero(fields[5])
		f.RspDir = atoiOrZero(fields[6])
		f.RefEntName = fields[7]
		f.RefNode = atoiOrZero(fields[8])
		f.RefDir = atoiOrZero(fields[9])
		return
	}

	// Format(2(I5,I10),2(1X,10A1,I10,I4))
	f.FuncType = atoiOrZero(column(line, 0, 5))
	f.FuncID = atoiOrZero(column(line, 5, 10))
	f.VerNum = atoiOrZero(column(line, 15, 5))
	f.LoadCaseID = atoiOrZero(column(line, 20, 10))
	f.RspEntName = column(line, 31, 10)
	f.RspNode = atoiOrZero(column(line, 41, 10))
	f.RspDir = atoiOrZero(column(line, 51, 4))
	f.RefEntName = column(line, 56, 10)
	f.RefNode = atoiOrZero(column(line, 66, 10))
	f.RefDir = atoiOrZero(column(line, 76, 4))
}

// readCharacteristics parses record 7, Format(3I10,3E13.5).
func readCharacteristics(f *Function, line string, lineNo int) error {
	fields, err := splitNumbers(line)
	if err != nil || len(fields) < 5 {
		return malformed(lineNo, "invalid data characteristic record %q", strings.TrimSpace(line))
	}

	ints := make([]int, 3)
	for i := range ints {
		v, err := strconv.Atoi(fields[i])
		if err != nil {
			return malformed(lineNo, "invalid integer %q in data characteristic record", fields[i])
		}
		ints[i] = v
	}
	f.OrdDataType, f.NumPts, f.AbscissaSpacing = ints[0], ints[1], ints[2]

	switch f.OrdDataType {
	case 2, 4, 5, 6:
	default:
		return malformed(lineNo, "unsupported ordinate data type %d", f.OrdDataType)
	}
	if f.NumPts < 1 || f.NumPts > MaxPoints {
		return malformed(lineNo, "invalid number of points %d", f.NumPts)
	}

	if f.AbscissaMin, err = parseFloat(fields[3]); err != nil {
		return malformed(lineNo, "invalid abscissa minimum %q", fields[3])
	}
	if f.AbscissaInc, err = parseFloat(fields[4]); err != nil {
		return malformed(lineNo, "invalid abscissa increment %q", fields[4])
	}
	if len(fields) > 5 {
		f.ZAxisValue, _ = parseFloat(fields[5])
	}
	return nil
}

// readAxis parses records 8 to 11, Format(I10,3I5,2(1X,20A1)). Short
// free-form records are read by whitespace instead.
func readAxis(line string) AxisDef {
	if len(line) < 26 {
		fields := strings.Fields(line)
		ax := AxisDef{}
		ints := []*int{&ax.SpecDataType, &ax.LenUnitsExp, &ax.ForceUnitsExp, &ax.TempUnitsExp}
		for i, p := range ints {
			if i < len(fields) {
				*p = atoiOrZero(fields[i])
			}
		}
		if len(fields) > 4 {
			ax.Label = fields[4]
		}
		if len(fields) > 5 {
			ax.Units = fields[5]
		}
		return ax
	}
	return AxisDef{
		SpecDataType:  atoiOrZero(column(line, 0, 10)),
		LenUnitsExp:   atoiOrZero(column(line, 10, 5)),
		ForceUnitsExp: atoiOrZero(column(line, 15, 5)),
		TempUnitsExp:  atoiOrZero(column(line, 20, 5)),
		Label:         column(line, 26, 20),
		Units:         column(line, 47, 20),
	}
}

func (f *Function) fill(values []float64) error {
	perPoint := 1
	if f.IsComplex() {
		perPoint = 2
	}
	even := f.AbscissaSpacing == 1
	if !even {
		perPoint++
	}

	need := f.NumPts * perPoint
	if len(values) < need {
		return fmt.Errorf("expected %d ordinate values, found %d", need, len(values))
	}

	f.X = make([]float64, f.NumPts)
	if f.IsComplex() {
		f.Data = make([]complex128, f.NumPts)
	} else {
		f.Real = make([]float64, f.NumPts)
	}

	for k := 0; k < f.NumPts; k++ {
		row := values[k*perPoint : (k+1)*perPoint]
		if even {
			f.X[k] = f.AbscissaMin + float64(k)*f.AbscissaInc
		} else {
			f.X[k] = row[0]
			row = row[1:]
		}
		if f.IsComplex() {
			f.Data[k] = complex(row[0], row[1])
		} else {
			f.Real[k] = row[0]
		}
	}
	return nil
}

var numberPattern = regexp.MustCompile(`[-+]?(?:\d+\.?\d*|\.\d+)(?:[EeDd][-+]?\d+)?`)

// splitNumbers tokenizes a record, separating fixed-width numbers that were
// written without a blank between them.
func splitNumbers(line string) ([]string, error) {
	var out []string
	for _, tok := range strings.Fields(line) {
		if _, err := parseFloat(tok); err == nil {
			out = append(out, tok)
			continue
		}
		parts := numberPattern.FindAllString(tok, -1)
		if len(parts) == 0 || strings.Join(parts, "") != tok {
			return nil, fmt.Errorf("unparseable token %q", tok)
		}
		out = append(out, parts...)
	}
	return out, nil
}

func readNumbers(lines []string, first int) ([]float64, error) {
	var values []float64
	for i, line := range lines {
		tokens, err := splitNumbers(line)
		if err != nil {
			return nil, malformed(first+i, "%v", err)
		}
		for _, tok := range tokens {
			v, err := parseFloat(tok)
			if err != nil {
				return nil, malformed(first+i, "invalid number %q", tok)
			}
			values = append(values, v)
		}
	}
	return values, nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.NewReplacer("D", "E", "d", "e").Replace(s), 64)
}

func atoiOrZero(s string) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return v
}

// column returns the trimmed fixed-width field [start, start+width) of line,
// clipped to the line length.
func column(line string, start, width int) string {
	if start >= len(line) {
		return ""
	}
	end := start + width
	if end > len(line) {
		end = len(line)
	}
	return strings.TrimSpace(line[start:end])
}
