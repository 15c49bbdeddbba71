package enrich

import (
	"context"
	"fmt"

	"github.com/OFFIS-RIT/docgraph/pkg/common"
	"github.com/OFFIS-RIT/docgraph/pkg/logger"
	"github.com/OFFIS-RIT/docgraph/pkg/store"
)

// Timeline links every dated document to a "<project> Project Timeline"
// node, chains the documents with PRECEDED in date order and groups them by
// month (yyyy-mm) into TimeGroup nodes. The pass runs in one transaction.
func Timeline(ctx context.Context, s store.GraphStore, project string) (Result, error) {
	docs, err := s.QueryDocumentsWithDate(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to query dated documents: %w", err)
	}
	if len(docs) == 0 {
		logger.Info("[Timeline] No documents with dates found")
		return Result{}, nil
	}

	var res Result
	err = store.WithTx(ctx, s, func(tx store.GraphTx) error {
		w := &writer{tx: tx}
		timeline, err := w.merge(ctx, &common.EntityNode{
			EntityKind: common.KindTimeline,
			Name:       projectName(project) + " Project Timeline",
		})
		if err != nil {
			return err
		}

		var prev int64
		for i, doc := range docs {
			if err := w.relate(ctx, doc.ID, common.RelPartOf, timeline); err != nil {
				return err
			}
			if i > 0 {
				if err := w.relate(ctx, prev, common.RelPreceded, doc.ID); err != nil {
					return err
				}
			}
			prev = doc.ID
		}

		months := make(map[string]int64)
		for _, doc := range docs {
			date := doc.StringProp("date")
			if len(date) < 7 {
				continue
			}
			month := date[:7]
			group, ok := months[month]
			if !ok {
				group, err = w.merge(ctx, &common.EntityNode{EntityKind: common.KindTimeGroup, Name: month})
				if err != nil {
					return err
				}
				if err := w.relate(ctx, group, common.RelPartOf, timeline); err != nil {
					return err
				}
				months[month] = group
			}
			if err := w.relate(ctx, doc.ID, common.RelBelongsTo, group); err != nil {
				return err
			}
		}

		res = w.res
		logger.Info("[Timeline] Added month groups", "groups", len(months), "documents", len(docs))
		return nil
	})
	if err != nil {
		return Result{}, &common.TransactionError{Scope: "timeline", Err: err}
	}
	return res, nil
}
