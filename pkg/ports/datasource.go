package ports

import "context"

// DeliverFunc receives the result of a RemoteDataSource fetch.
// A non-nil error means no delivery will follow for that request.
type DeliverFunc func(delivery ChunkDelivery, err error)

// RemoteDataSource fetches chunks of frames from a remote store.
type RemoteDataSource interface {
	// Fetch requests a chunk. The result is passed to deliver exactly once,
	// possibly before Fetch returns. Frames within a delivery keep row order
	// and a chunk is never split across deliveries.
	Fetch(req ChunkRequest, deliver DeliverFunc)
}

// FileInfo describes a recording held by the remote store.
type FileInfo struct {
	Name      string `json:"name"`
	Rows      int    `json:"rows"`
	Columns   int    `json:"columns"`
	TimeStart string `json:"time_start"`
	TimeEnd   string `json:"time_end"`
}

// Catalog lists the recordings a remote store can serve.
type Catalog interface {
	// Files returns the recording names in sorted order.
	Files(ctx context.Context) ([]string, error)

	// Info returns row count and time range for a recording.
	Info(ctx context.Context, name string) (FileInfo, error)
}
