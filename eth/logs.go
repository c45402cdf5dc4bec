package eth

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/sync/errgroup"
)

// LogFilter selects logs by address, topics and block range. StartBlock
// and StopBlock are inclusive.
type LogFilter struct {
	Addresses  []common.Address
	Topics     [][]common.Hash
	StartBlock uint64
	StopBlock  uint64
}

// BlockRange is one inclusive page of a larger block span.
type BlockRange struct {
	Start uint64
	Stop  uint64
}

// BlockRanges splits [start, stop] into pages of at most pageSize blocks.
func BlockRanges(start, stop, pageSize uint64) []BlockRange {
	if pageSize == 0 {
		pageSize = DEFAULT_BLOCK_PAGE_SIZE
	}
	var ranges []BlockRange
	for from := start; from <= stop; from += pageSize {
		to := from + pageSize - 1
		if to > stop {
			to = stop
		}
		ranges = append(ranges, BlockRange{Start: from, Stop: to})
	}
	return ranges
}

// FetchLogs gathers the filter's logs page by page, fetching pages with a
// bounded worker pool and returning them stitched back in block order. A
// failing page fails the whole fetch.
func FetchLogs(ctx context.Context, provider Provider, filter LogFilter, pageSize uint64, concurrency int) ([]types.Log, error) {
	ranges := BlockRanges(filter.StartBlock, filter.StopBlock, pageSize)
	if len(ranges) == 0 {
		return nil, nil
	}
	if concurrency <= 0 {
		concurrency = DEFAULT_CONCURRENCY
	}

	pages := make([][]types.Log, len(ranges))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)
	for i, blockRange := range ranges {
		group.Go(func() error {
			pageFilter := filter
			pageFilter.StartBlock = blockRange.Start
			pageFilter.StopBlock = blockRange.Stop
			logs, err := provider.GetLogs(groupCtx, pageFilter)
			if err != nil {
				return err
			}
			pages[i] = logs
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	var all []types.Log
	for _, page := range pages {
		all = append(all, page...)
	}
	return all, nil
}
