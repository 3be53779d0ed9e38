package strategy

import (
	"MarketWatch/internal/domain/models"
)

// Type weights a strategy's vote in the consensus. Customer strategies
// outvote server-wide ones, which outvote the general built-ins.
type Type int

const (
	TypeGeneral  Type = 100
	TypeServer   Type = 200
	TypeCustomer Type = 300
)

// Strategy is one trading heuristic evaluated over historical bars. Execute
// must be safe for concurrent use: the evaluator fans all strategies out at
// once.
type Strategy interface {
	Name() string
	Description() string
	Type() Type
	Priority() int
	Execute(bars []models.Bar) (models.Action, error)
}
