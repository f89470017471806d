package bootstrap

import (
	"strings"
	"testing"
)

const sampleTSV = "plate\ttick-a\ttick-b\tpole-lon-microdeg\tpole-lat-microdeg\tangle-microdeg\n" +
	"1\t0\t100\t0\t90000000\t10000000\n" +
	"1\t100\t200\t0\t90000000\t5000000\n" +
	"2\t0\t200\t0\t90000000\t0\n"

func TestReadMotionTSVParsesRows(t *testing.T) {
	records, err := ReadMotionTSV(strings.NewReader(sampleTSV), nil)
	if err != nil {
		t.Fatalf("read motion tsv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if records[0].TickA != 0 || records[0].TickB != 100 {
		t.Fatalf("unexpected tick range: %+v", records[0])
	}
	if records[0].PlateID != records[1].PlateID {
		t.Fatal("expected rows sharing a dataset plate id to map to the same internal PlateID")
	}
	if records[0].PlateID == records[2].PlateID {
		t.Fatal("expected distinct dataset plate ids to map to distinct internal PlateIDs")
	}
}

func TestReadMotionTSVRejectsBadTickOrder(t *testing.T) {
	bad := "plate\ttick-a\ttick-b\tpole-lon-microdeg\tpole-lat-microdeg\tangle-microdeg\n" +
		"1\t100\t50\t0\t0\t0\n"
	_, err := ReadMotionTSV(strings.NewReader(bad), nil)
	if err == nil {
		t.Fatal("expected error for tick-a >= tick-b")
	}
}

func TestReadMotionTSVMissingColumnFails(t *testing.T) {
	bad := "plate\ttick-a\ttick-b\n1\t0\t100\n"
	_, err := ReadMotionTSV(strings.NewReader(bad), nil)
	if err == nil {
		t.Fatal("expected error for missing required column")
	}
}

func TestToMotionSegmentUpsertedPreservesOrder(t *testing.T) {
	records, err := ReadMotionTSV(strings.NewReader(sampleTSV), nil)
	if err != nil {
		t.Fatal(err)
	}
	events, ticks := ToMotionSegmentUpserted(records)
	if len(events) != len(records) || len(ticks) != len(records) {
		t.Fatal("expected one event and one tick per record")
	}
	for i, r := range records {
		if ticks[i] != r.TickA {
			t.Fatalf("event %d tick = %v, want %v", i, ticks[i], r.TickA)
		}
	}
}
