package bonus

import "context"

type StoreAPI interface {
	RecordSink
	GetEntry(ctx context.Context, id string) (Entry, error)
	ListEntries(ctx context.Context, limit, offset int) ([]Entry, int, error)
}
