package repository

import (
	"context"

	"MarketWatch/internal/domain/models"
	domrepo "MarketWatch/internal/domain/repository"
)

// NopSignalStore is used when ClickHouse persistence is disabled.
type NopSignalStore struct{}

func (NopSignalStore) SaveConsensus(context.Context, models.ConsensusResult) error { return nil }
func (NopSignalStore) SaveAnomalies(context.Context, []models.AnomalyEvent) error  { return nil }
func (NopSignalStore) Close() error                                                { return nil }

var _ domrepo.SignalStore = NopSignalStore{}
