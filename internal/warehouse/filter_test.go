package warehouse

import (
	"testing"
	"time"
)

func TestFilterExistingDropsOnlyExistingRows(t *testing.T) {
	instant := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	batch := &StarBatch{
		Times: []TimeRow{
			{ID: "DT0000000000", PublishedAt: instant, Tag: TagNew},
			{ID: "DT0000000001", PublishedAt: instant.Add(time.Hour), Tag: TagExisting},
		},
		Sources: []SourceRow{
			{ID: "NS0000000000", DomainID: "a", Tag: TagExisting},
		},
		Authors: []AuthorRow{
			{ID: "AU0000000000", Name: "Jane Doe", Tag: TagNew},
			{ID: "AU0000000001", Name: "", Tag: TagExisting},
		},
		Contents: []ContentRow{
			{ID: "CT0000000000", Title: "t", URL: "u", Tag: TagNew},
		},
		Facts: []FactRow{
			{ID: "AR0000000000"},
			{ID: "AR0000000001"},
		},
	}

	filtered := FilterExisting(batch)

	if len(filtered.Times) != 1 || filtered.Times[0].ID != "DT0000000000" {
		t.Errorf("times = %+v, want only the NEW row", filtered.Times)
	}
	if len(filtered.Sources) != 0 {
		t.Errorf("sources = %+v, want empty", filtered.Sources)
	}
	if len(filtered.Authors) != 1 || filtered.Authors[0].Name != "Jane Doe" {
		t.Errorf("authors = %+v, want only the NEW row", filtered.Authors)
	}
	if len(filtered.Contents) != 1 {
		t.Errorf("contents = %+v, want the NEW row kept", filtered.Contents)
	}
	if len(filtered.Facts) != 2 {
		t.Errorf("facts = %d, want all 2 passed through unfiltered", len(filtered.Facts))
	}
}

func TestFilterExistingIsPure(t *testing.T) {
	batch := &StarBatch{
		Authors: []AuthorRow{
			{ID: "AU0000000000", Tag: TagExisting},
		},
	}
	FilterExisting(batch)
	if len(batch.Authors) != 1 {
		t.Errorf("input batch modified: authors = %d, want 1", len(batch.Authors))
	}
}

func TestFilterExistingEmptyBatch(t *testing.T) {
	filtered := FilterExisting(&StarBatch{})
	if len(filtered.Times)+len(filtered.Sources)+len(filtered.Authors)+len(filtered.Contents)+len(filtered.Facts) != 0 {
		t.Errorf("filtered empty batch is not empty: %+v", filtered)
	}
}
