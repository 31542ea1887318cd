// Package memory is an in-process implementation of every repository interface.
// It backs use-case tests and local runs without Postgres.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fekuna/omnipos-forecast-service/internal/apperror"
	invDTO "github.com/fekuna/omnipos-forecast-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-forecast-service/internal/model"
	recDTO "github.com/fekuna/omnipos-forecast-service/internal/recommendation/dto"
)

// Op names a repository read or write that can be made to fail.
type Op string

const (
	OpListLines           Op = "order.list_lines"
	OpEarliestLine        Op = "order.earliest_line"
	OpListSuppliers       Op = "supplier.list"
	OpGetVelocity         Op = "velocity.get"
	OpWriteVelocity       Op = "velocity.write"
	OpGetRecommendation   Op = "recommendation.get"
	OpWriteRecommendation Op = "recommendation.write"
	OpApply               Op = "recommendation.apply"
)

type velocityRow struct {
	v   model.SalesVelocity
	seq int
}

type recommendationRow struct {
	r   model.StockRecommendation
	seq int
}

type Store struct {
	mu sync.RWMutex

	products        map[string]model.Product
	productOrder    []string
	lines           map[string][]model.OrderLine
	suppliers       map[string][]model.SupplierLink
	velocities      map[string]velocityRow
	recommendations map[string]recommendationRow
	logs            []model.InventoryLog
	seq             int

	failures map[Op]map[string]error
}

func New() *Store {
	return &Store{
		products:        make(map[string]model.Product),
		lines:           make(map[string][]model.OrderLine),
		suppliers:       make(map[string][]model.SupplierLink),
		velocities:      make(map[string]velocityRow),
		recommendations: make(map[string]recommendationRow),
		failures:        make(map[Op]map[string]error),
	}
}

// FailOn makes op return err for productID until cleared with a nil err.
func (s *Store) FailOn(op Op, productID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures[op] == nil {
		s.failures[op] = make(map[string]error)
	}
	if err == nil {
		delete(s.failures[op], productID)
		return
	}
	s.failures[op][productID] = err
}

func (s *Store) failure(op Op, productID string) error {
	return s.failures[op][productID]
}

func (s *Store) PutProduct(p model.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; !ok {
		s.productOrder = append(s.productOrder, p.ID)
	}
	s.products[p.ID] = p
}

func (s *Store) AddOrderLine(productID string, quantity int, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines[productID] = append(s.lines[productID], model.OrderLine{Quantity: quantity, CreatedAt: at})
}

func (s *Store) AddSupplierLink(productID string, link model.SupplierLink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suppliers[productID] = append(s.suppliers[productID], link)
}

func (s *Store) AppendLog(entry model.InventoryLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, entry)
}

func (s *Store) Product(id string) (model.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	return p, ok
}

// Logs returns a copy of the inventory log for productID, oldest first.
func (s *Store) Logs(productID string) []model.InventoryLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.InventoryLog{}
	for _, l := range s.logs {
		if l.ProductID == productID {
			out = append(out, l)
		}
	}
	return out
}

func (s *Store) Products() *Products               { return &Products{s} }
func (s *Store) Orders() *Orders                   { return &Orders{s} }
func (s *Store) Suppliers() *Suppliers             { return &Suppliers{s} }
func (s *Store) Velocities() *Velocities           { return &Velocities{s} }
func (s *Store) Recommendations() *Recommendations { return &Recommendations{s} }
func (s *Store) InventoryLogs() *InventoryLogs     { return &InventoryLogs{s} }

type Products struct{ s *Store }

func (r *Products) FindByID(_ context.Context, id string) (*model.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *Products) ListActive(_ context.Context) ([]model.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []model.Product{}
	for _, id := range r.s.productOrder {
		if p := r.s.products[id]; p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

type Orders struct{ s *Store }

func (r *Orders) ListLines(_ context.Context, productID string, since, until time.Time) ([]model.OrderLine, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.failure(OpListLines, productID); err != nil {
		return nil, err
	}
	out := []model.OrderLine{}
	for _, l := range r.s.lines[productID] {
		if !l.CreatedAt.Before(since) && l.CreatedAt.Before(until) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *Orders) EarliestLine(_ context.Context, productID string) (*time.Time, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.failure(OpEarliestLine, productID); err != nil {
		return nil, err
	}
	var earliest *time.Time
	for _, l := range r.s.lines[productID] {
		if earliest == nil || l.CreatedAt.Before(*earliest) {
			t := l.CreatedAt
			earliest = &t
		}
	}
	return earliest, nil
}

type Suppliers struct{ s *Store }

func (r *Suppliers) ListByProduct(_ context.Context, productID string) ([]model.SupplierLink, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.failure(OpListSuppliers, productID); err != nil {
		return nil, err
	}
	return append([]model.SupplierLink{}, r.s.suppliers[productID]...), nil
}

type Velocities struct{ s *Store }

func (r *Velocities) GetByProduct(_ context.Context, productID string) (*model.SalesVelocity, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.failure(OpGetVelocity, productID); err != nil {
		return nil, err
	}
	row, ok := r.s.velocities[productID]
	if !ok {
		return nil, nil
	}
	v := row.v
	return &v, nil
}

func (r *Velocities) Insert(_ context.Context, v *model.SalesVelocity) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure(OpWriteVelocity, v.ProductID); err != nil {
		return false, err
	}
	if _, ok := r.s.velocities[v.ProductID]; ok {
		return false, nil
	}
	r.s.seq++
	r.s.velocities[v.ProductID] = velocityRow{v: *v, seq: r.s.seq}
	return true, nil
}

func (r *Velocities) Update(_ context.Context, v *model.SalesVelocity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure(OpWriteVelocity, v.ProductID); err != nil {
		return err
	}
	row, ok := r.s.velocities[v.ProductID]
	if !ok {
		return nil
	}
	row.v.DailyVelocity = v.DailyVelocity
	row.v.WeeklyVelocity = v.WeeklyVelocity
	row.v.MonthlyVelocity = v.MonthlyVelocity
	row.v.VarianceDailyDemand = v.VarianceDailyDemand
	row.v.LastUpdated = v.LastUpdated
	r.s.velocities[v.ProductID] = row
	return nil
}

func (r *Velocities) ListTop(_ context.Context, limit int) ([]model.SalesVelocity, error) {
	r.s.mu.RLock()
	rows := make([]velocityRow, 0, len(r.s.velocities))
	for _, row := range r.s.velocities {
		rows = append(rows, row)
	}
	r.s.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].v.DailyVelocity != rows[j].v.DailyVelocity {
			return rows[i].v.DailyVelocity > rows[j].v.DailyVelocity
		}
		return rows[i].seq < rows[j].seq
	})
	out := []model.SalesVelocity{}
	for i := 0; i < len(rows) && i < limit; i++ {
		out = append(out, rows[i].v)
	}
	return out, nil
}

type Recommendations struct{ s *Store }

func (r *Recommendations) GetByProduct(_ context.Context, productID string) (*model.StockRecommendation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.failure(OpGetRecommendation, productID); err != nil {
		return nil, err
	}
	row, ok := r.s.recommendations[productID]
	if !ok {
		return nil, nil
	}
	rec := row.r
	return &rec, nil
}

func (r *Recommendations) Insert(_ context.Context, rec *model.StockRecommendation) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure(OpWriteRecommendation, rec.ProductID); err != nil {
		return false, err
	}
	if _, ok := r.s.recommendations[rec.ProductID]; ok {
		return false, nil
	}
	r.s.seq++
	r.s.recommendations[rec.ProductID] = recommendationRow{r: *rec, seq: r.s.seq}
	return true, nil
}

func (r *Recommendations) Update(_ context.Context, rec *model.StockRecommendation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure(OpWriteRecommendation, rec.ProductID); err != nil {
		return err
	}
	row, ok := r.s.recommendations[rec.ProductID]
	if !ok {
		return nil
	}
	createdAt, id := row.r.CreatedAt, row.r.ID
	row.r = *rec
	row.r.ID, row.r.CreatedAt = id, createdAt
	r.s.recommendations[rec.ProductID] = row
	return nil
}

func (r *Recommendations) ListTop(_ context.Context, limit int) ([]model.StockRecommendation, error) {
	r.s.mu.RLock()
	rows := make([]recommendationRow, 0, len(r.s.recommendations))
	for _, row := range r.s.recommendations {
		rows = append(rows, row)
	}
	r.s.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].r.ReorderPoint != rows[j].r.ReorderPoint {
			return rows[i].r.ReorderPoint > rows[j].r.ReorderPoint
		}
		return rows[i].seq < rows[j].seq
	})
	out := []model.StockRecommendation{}
	for i := 0; i < len(rows) && i < limit; i++ {
		out = append(out, rows[i].r)
	}
	return out, nil
}

func (r *Recommendations) FindAll(_ context.Context, f *recDTO.RecommendationFilters) ([]model.RecommendationWithStock, int, error) {
	r.s.mu.RLock()
	rows := []recommendationRow{}
	stock := map[string]int{}
	for pid, row := range r.s.recommendations {
		if f.AppliedOnly && row.r.AppliedAt == nil {
			continue
		}
		current := r.s.products[pid].Stock
		if f.MinGap != nil && abs(row.r.RecommendedStock-current) < *f.MinGap {
			continue
		}
		rows = append(rows, row)
		stock[pid] = current
	}
	r.s.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].r.UpdatedAt.Equal(rows[j].r.UpdatedAt) {
			return rows[i].r.UpdatedAt.After(rows[j].r.UpdatedAt)
		}
		return rows[i].seq < rows[j].seq
	})

	total := len(rows)
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		start := (page - 1) * f.PageSize
		if start > len(rows) {
			start = len(rows)
		}
		end := start + f.PageSize
		if end > len(rows) {
			end = len(rows)
		}
		rows = rows[start:end]
	}

	out := make([]model.RecommendationWithStock, len(rows))
	for i, row := range rows {
		out[i] = model.RecommendationWithStock{StockRecommendation: row.r, CurrentStock: stock[row.r.ProductID]}
	}
	return out, total, nil
}

func (r *Recommendations) ApplyWithLog(_ context.Context, rec *model.StockRecommendation, entry *model.InventoryLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure(OpApply, entry.ProductID); err != nil {
		return err
	}

	p, ok := r.s.products[entry.ProductID]
	if !ok || p.Stock != entry.PreviousStock {
		return apperror.ErrStockConflict
	}
	row, ok := r.s.recommendations[rec.ProductID]
	if !ok || row.r.ID != rec.ID || row.r.RecommendedStock != rec.RecommendedStock {
		return apperror.ErrStockConflict
	}

	p.Stock = entry.NewStock
	p.InStock = entry.NewStock > 0
	p.UpdatedAt = entry.CreatedAt
	r.s.products[p.ID] = p

	r.s.logs = append(r.s.logs, *entry)

	appliedAt := *rec.AppliedAt
	row.r.AppliedAt = &appliedAt
	r.s.recommendations[rec.ProductID] = row
	return nil
}

type InventoryLogs struct{ s *Store }

func (r *InventoryLogs) ListLogs(_ context.Context, f *invDTO.LogFilters) ([]model.InventoryLog, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := []model.InventoryLog{}
	for i := len(r.s.logs) - 1; i >= 0; i-- {
		l := r.s.logs[i]
		if f.ProductID != "" && l.ProductID != f.ProductID {
			continue
		}
		if f.StartDate != nil && l.CreatedAt.Before(*f.StartDate) {
			continue
		}
		if f.EndDate != nil && !l.CreatedAt.Before(*f.EndDate) {
			continue
		}
		matched = append(matched, l)
	}

	total := len(matched)
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		start := (page - 1) * f.PageSize
		if start > len(matched) {
			start = len(matched)
		}
		end := start + f.PageSize
		if end > len(matched) {
			end = len(matched)
		}
		matched = matched[start:end]
	}
	return matched, total, nil
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
