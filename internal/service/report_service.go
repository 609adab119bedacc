package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"path"
	"strconv"
	"time"

	"github.com/andresuchdata/ddmrp/internal/domain"
	"github.com/andresuchdata/ddmrp/internal/repository"
	"github.com/andresuchdata/ddmrp/internal/storage"
	"github.com/rs/zerolog/log"
)

var bufferStatusHeader = []string{
	"item_id", "sku", "name", "location_id",
	"red_zone", "yellow_zone", "green_zone",
	"net_flow_position", "buffer_penetration", "planning_priority",
	"buffer_health", "fill_rate", "computed_at",
}

// ReportService exports persisted buffer status to object storage.
type ReportService struct {
	items  repository.InventoryRepository
	store  storage.ObjectStorage
	prefix string
	now    func() time.Time
}

func NewReportService(items repository.InventoryRepository, store storage.ObjectStorage, prefix string) *ReportService {
	if prefix == "" {
		prefix = "buffer-status"
	}
	return &ReportService{items: items, store: store, prefix: prefix, now: time.Now}
}

// ExportBufferStatus writes one CSV with the computed fields of every matching
// item and returns its object key.
func (s *ReportService) ExportBufferStatus(ctx context.Context, filter domain.ItemFilter) (string, error) {
	items, err := s.items.ListItems(ctx, filter)
	if err != nil {
		return "", fmt.Errorf("failed to list items: %w", err)
	}

	data, err := encodeBufferStatus(items)
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	now := s.now().UTC()
	key := path.Join(s.prefix, now.Format("2006/01/02"), fmt.Sprintf("buffer-status-%s.csv", now.Format("150405")))
	if err := s.store.UploadObject(ctx, key, data); err != nil {
		return "", err
	}

	log.Info().Str("key", key).Int("items", len(items)).Msg("buffer status exported")
	return key, nil
}

// ExportAfterRecompute exports the status written by a finished batch. A failed
// export is logged and returns an empty key; it never fails the batch.
func (s *ReportService) ExportAfterRecompute(ctx context.Context, filter domain.ItemFilter, runID int64) string {
	key, err := s.ExportBufferStatus(ctx, filter)
	if err != nil {
		log.Warn().Err(err).Int64("run_id", runID).Msg("buffer status export failed")
		return ""
	}
	return key
}

// ListReports lists previously exported reports.
func (s *ReportService) ListReports(ctx context.Context) ([]storage.ObjectInfo, error) {
	objects, err := s.store.ListObjects(ctx, s.prefix+"/")
	if err != nil {
		return nil, err
	}
	if objects == nil {
		objects = make([]storage.ObjectInfo, 0)
	}
	return objects, nil
}

func encodeBufferStatus(items []domain.InventoryItem) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(bufferStatusHeader); err != nil {
		return nil, err
	}

	for _, item := range items {
		computedAt := ""
		if item.ComputedAt != nil {
			computedAt = item.ComputedAt.UTC().Format(time.RFC3339)
		}
		record := []string{
			item.ID,
			item.SKU,
			item.Name,
			item.LocationID,
			formatFloat(item.Red),
			formatFloat(item.Yellow),
			formatFloat(item.Green),
			formatFloat(item.NetFlowPosition),
			formatFloat(item.BufferPenetration),
			string(item.PlanningPriority),
			formatFloat(item.BufferHealth),
			formatFloat(item.FillRate),
			computedAt,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
