package aranet

import "context"

type Scanner interface {

	// Scan delivers every Aranet advertisement seen until ctx is done.
	Scan(ctx context.Context, onAdvertisement func(Advertisement)) error
}
