// Package bootstrap imports plate-motion-model datasets from TSV files
// into truth events, as thin one-shot glue that sits outside the core
// simulation substrate.
package bootstrap

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/ids"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/kinematics"
)

// motionHeader lists the columns a plate-motion TSV must declare. Column
// order in the file is irrelevant; only presence of these names matters.
var motionHeader = []string{
	"plate",
	"tick-a",
	"tick-b",
	"pole-lon-microdeg",
	"pole-lat-microdeg",
	"angle-microdeg",
}

// MotionRecord is one decoded row: a single plate's stage rotation over
// one tick interval.
type MotionRecord struct {
	PlateID       ids.PlateID
	SegmentID     ids.MotionSegmentID
	TickA, TickB  ids.Tick
	StageRotation ids.StageRotation
}

// plateIDs maps the dataset's small integer plate identifiers (the TSV's
// native key space) to stable internal PlateIDs, minting a fresh one the
// first time a given integer is seen so repeated imports of the same file
// are internally consistent within a single call.
type plateIDs map[int]ids.PlateID

func (p plateIDs) get(n int) ids.PlateID {
	if id, ok := p[n]; ok {
		return id
	}
	id := ids.NewPlateID()
	p[n] = id
	return id
}

// ReadMotionTSV reads a plate-motion-model TSV file into MotionRecords,
// one per row, minting a fresh MotionSegmentID for each row and mapping
// each file-local plate integer to a stable PlateID via plateOf (pass a
// fresh, empty map to mint a new mapping, or a shared one to import
// several files against the same plate identifiers).
func ReadMotionTSV(r io.Reader, plateOf plateIDs) ([]MotionRecord, error) {
	if plateOf == nil {
		plateOf = make(plateIDs)
	}
	tab := csv.NewReader(r)
	tab.Comma = '\t'
	tab.Comment = '#'

	head, err := tab.Read()
	if err != nil {
		return nil, fmt.Errorf("bootstrap: reading header: %w", err)
	}
	fields := make(map[string]int, len(head))
	for i, h := range head {
		fields[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, h := range motionHeader {
		if _, ok := fields[h]; !ok {
			return nil, fmt.Errorf("bootstrap: expecting field %q", h)
		}
	}

	var records []MotionRecord
	row := 1
	for {
		rec, err := tab.Read()
		row++
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("bootstrap: row %d: %w", row, err)
		}

		plateNum, err := intField(rec, fields, "plate", row)
		if err != nil {
			return nil, err
		}
		tickA, err := int64Field(rec, fields, "tick-a", row)
		if err != nil {
			return nil, err
		}
		tickB, err := int64Field(rec, fields, "tick-b", row)
		if err != nil {
			return nil, err
		}
		poleLon, err := int64Field(rec, fields, "pole-lon-microdeg", row)
		if err != nil {
			return nil, err
		}
		poleLat, err := int64Field(rec, fields, "pole-lat-microdeg", row)
		if err != nil {
			return nil, err
		}
		angle, err := int64Field(rec, fields, "angle-microdeg", row)
		if err != nil {
			return nil, err
		}
		if tickA >= tickB {
			return nil, fmt.Errorf("bootstrap: row %d: tick-a must be less than tick-b", row)
		}

		records = append(records, MotionRecord{
			PlateID:   plateOf.get(plateNum),
			SegmentID: ids.NewMotionSegmentID(),
			TickA:     ids.Tick(tickA),
			TickB:     ids.Tick(tickB),
			StageRotation: ids.StageRotation{
				PoleLonMicrodeg: poleLon,
				PoleLatMicrodeg: poleLat,
				AngleMicrodeg:   angle,
			},
		})
	}
	if records == nil {
		return nil, fmt.Errorf("bootstrap: no data rows: %w", io.EOF)
	}
	return records, nil
}

func intField(row []string, fields map[string]int, name string, line int) (int, error) {
	v, err := strconv.Atoi(row[fields[name]])
	if err != nil {
		return 0, fmt.Errorf("bootstrap: row %d: field %q: %w", line, name, err)
	}
	return v, nil
}

func int64Field(row []string, fields map[string]int, name string, line int) (int64, error) {
	v, err := strconv.ParseInt(row[fields[name]], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bootstrap: row %d: field %q: %w", line, name, err)
	}
	return v, nil
}

// ToMotionSegmentUpserted converts decoded records into the kinematics
// events that install them as truth, in the same order they were read.
func ToMotionSegmentUpserted(records []MotionRecord) ([]kinematics.Payload, []ids.Tick) {
	events := make([]kinematics.Payload, len(records))
	ticks := make([]ids.Tick, len(records))
	for i, r := range records {
		events[i] = kinematics.Payload{
			Kind:          kinematics.KindMotionSegmentUpserted,
			PlateID:       r.PlateID,
			SegmentID:     r.SegmentID,
			TickA:         r.TickA,
			TickB:         r.TickB,
			StageRotation: r.StageRotation,
		}
		ticks[i] = r.TickA
	}
	return events, ticks
}
