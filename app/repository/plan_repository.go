package repository

import (
	"errors"

	"github.com/HandyCommerce/ShopBridge/app/models"
	"gorm.io/gorm"
)

// planRepository implements the PlanRepository interface
type planRepository struct {
	db *gorm.DB
}

// NewPlanRepository creates a new plan repository instance
func NewPlanRepository(db *gorm.DB) PlanRepository {
	return &planRepository{db: db}
}

func (r *planRepository) Create(plan *models.Plan) error {
	return r.db.Create(plan).Error
}

func (r *planRepository) GetByID(id uint) (*models.Plan, error) {
	var plan models.Plan
	if err := r.db.First(&plan, id).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *planRepository) GetByName(name string) (*models.Plan, error) {
	var plan models.Plan
	if err := r.db.Where("name = ?", name).First(&plan).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *planRepository) ListActive() ([]models.Plan, error) {
	var plans []models.Plan
	err := r.db.Where("active = ?", true).Order("price_cents asc").Find(&plans).Error
	return plans, err
}

func (r *planRepository) Update(plan *models.Plan) error {
	return r.db.Save(plan).Error
}

// EnsureFreePlan seeds the free tier on startup so every shop can always
// fall back to it.
func (r *planRepository) EnsureFreePlan() error {
	_, err := r.GetByName(models.PlanNameFree)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return r.db.Create(&models.Plan{
		Name:       models.PlanNameFree,
		PriceCents: 0,
		Term:       models.PlanTermMonthly,
		Active:     true,
	}).Error
}
