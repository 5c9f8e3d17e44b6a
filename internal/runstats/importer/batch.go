package importer

import (
	"context"
	"fmt"

	"github.com/2beens/runlog/internal/runstats/runs"

	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

//go:generate mockgen -source=$GOFILE -destination=batch_mocks_test.go -package=importer_test

type runCreator interface {
	Add(ctx context.Context, run runs.Run) (*runs.Run, error)
}

// Result sums up a batch import. Canceled counts the valid rows never submitted
// because the context was done.
type Result struct {
	Success    int   `json:"success"`
	Failed     int   `json:"failed"`
	Skipped    int   `json:"skipped"`
	Canceled   int   `json:"canceled"`
	CreatedIDs []int `json:"createdIds,omitempty"`
	FailedRows []int `json:"failedRows,omitempty"`
	Err        error `json:"-"`
}

// ProgressFunc is called once per processed row; err is the creation error, if any.
type ProgressFunc func(row ImportRow, err error)

// ImportBatch stores the valid rows one by one. A failed row does not stop the
// batch; its error is combined into Result.Err. Rows with errors are skipped.
// There is no rollback: runs created before a cancellation stay.
func ImportBatch(ctx context.Context, rows []ImportRow, creator runCreator) Result {
	return ImportBatchWithProgress(ctx, rows, creator, nil)
}

func ImportBatchWithProgress(ctx context.Context, rows []ImportRow, creator runCreator, progress ProgressFunc) Result {
	var res Result
	for i, row := range rows {
		if !row.Valid() {
			res.Skipped++
			continue
		}

		if err := ctx.Err(); err != nil {
			res.Canceled = countValid(rows[i:])
			res.Err = multierr.Append(res.Err, fmt.Errorf("import canceled: %w", err))
			log.Warnf("import batch canceled, %d rows not attempted", res.Canceled)
			return res
		}

		created, err := createRow(ctx, row, creator)
		if err != nil {
			res.Failed++
			res.FailedRows = append(res.FailedRows, row.Index)
			res.Err = multierr.Append(res.Err, fmt.Errorf("row %d: %w", row.Index, err))
			log.Errorf("import row %d: %s", row.Index, err)
		} else {
			res.Success++
			res.CreatedIDs = append(res.CreatedIDs, created.ID)
		}

		if progress != nil {
			progress(row, err)
		}
	}
	return res
}

func createRow(ctx context.Context, row ImportRow, creator runCreator) (*runs.Run, error) {
	run, err := row.Run()
	if err != nil {
		return nil, err
	}
	return creator.Add(ctx, run)
}

func countValid(rows []ImportRow) int {
	n := 0
	for _, r := range rows {
		if r.Valid() {
			n++
		}
	}
	return n
}
