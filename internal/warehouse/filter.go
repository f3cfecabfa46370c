package warehouse

// FilterExisting is the incremental merge filter: it returns a copy of the
// batch with every EXISTING-tagged dimension row removed, leaving only rows
// that must be persisted. Fact rows always pass through unfiltered. Pure
// function; the input batch is not modified.
func FilterExisting(batch *StarBatch) *StarBatch {
	filtered := &StarBatch{
		Facts: batch.Facts,
	}
	for _, r := range batch.Times {
		if r.Tag == TagNew {
			filtered.Times = append(filtered.Times, r)
		}
	}
	for _, r := range batch.Sources {
		if r.Tag == TagNew {
			filtered.Sources = append(filtered.Sources, r)
		}
	}
	for _, r := range batch.Authors {
		if r.Tag == TagNew {
			filtered.Authors = append(filtered.Authors, r)
		}
	}
	for _, r := range batch.Contents {
		if r.Tag == TagNew {
			filtered.Contents = append(filtered.Contents, r)
		}
	}
	return filtered
}
