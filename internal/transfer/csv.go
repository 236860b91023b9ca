package transfer

import (
	"bufio"
	"encoding/csv"
	"errors"
	"io"
	"strconv"

	"github.com/google/logger"

	"prizedraw/internal/models"
)

// utf8BOM makes spreadsheet applications read the export as UTF-8.
const utf8BOM = "\xef\xbb\xbf"

// PrizeRow is one parsed prize line: name, drawCount and an optional bound list id.
type PrizeRow struct {
	Name        string
	DrawCount   int
	BoundListID string
}

// ReadParticipantsCSV parses "id,name" rows. Malformed rows are skipped and
// logged; a read error aborts the whole file.
func ReadParticipantsCSV(r io.Reader) ([]models.Participant, error) {
	reader := newReader(r)
	var out []models.Participant
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) != 2 || record[0] == "" || record[1] == "" {
			logger.Infof("Skipping malformed participant CSV record: %v", record)
			continue
		}
		out = append(out, models.Participant{ID: record[0], Name: record[1]})
	}
	return out, nil
}

// ReadPrizesCSV parses "name,drawCount[,listId]" rows.
func ReadPrizesCSV(r io.Reader) ([]PrizeRow, error) {
	reader := newReader(r)
	var out []PrizeRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) < 2 || len(record) > 3 || record[0] == "" {
			logger.Infof("Skipping malformed prize CSV record: %v", record)
			continue
		}
		count, err := strconv.Atoi(record[1])
		if err != nil || count < 1 {
			logger.Infof("Skipping prize CSV record with invalid draw count: %v", record)
			continue
		}
		row := PrizeRow{Name: record[0], DrawCount: count}
		if len(record) == 3 {
			row.BoundListID = record[2]
		}
		out = append(out, row)
	}
	return out, nil
}

// WriteResultsCSV writes one row per winner.
func WriteResultsCSV(w io.Writer, results []models.LotteryResult) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"獎項編號", "獎項名稱", "序號", "參與者編號", "參與者姓名"}); err != nil {
		return err
	}
	for _, result := range results {
		for i, winner := range result.Winners {
			row := []string{
				strconv.Itoa(result.Prize.Number),
				result.Prize.Name,
				strconv.Itoa(i + 1),
				winner.ID,
				winner.Name,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func newReader(r io.Reader) *csv.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && string(head) == utf8BOM {
		_, _ = br.Discard(len(utf8BOM))
	}
	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	return reader
}
