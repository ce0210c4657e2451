package repository

import (
	"errors"
	"strings"

	"github.com/HandyCommerce/ShopBridge/app/models"
	"gorm.io/gorm"
)

// shopRepository implements the ShopRepository interface
type shopRepository struct {
	db *gorm.DB
}

// NewShopRepository creates a new shop repository instance
func NewShopRepository(db *gorm.DB) ShopRepository {
	return &shopRepository{db: db}
}

func (r *shopRepository) Create(shop *models.Shop) error {
	return r.db.Create(shop).Error
}

func (r *shopRepository) GetByID(id uint) (*models.Shop, error) {
	var shop models.Shop
	if err := r.db.First(&shop, id).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}

func (r *shopRepository) GetByDomain(domain string) (*models.Shop, error) {
	var shop models.Shop
	err := r.db.Where("domain = ?", normalizeDomain(domain)).First(&shop).Error
	if err != nil {
		return nil, err
	}
	return &shop, nil
}

func (r *shopRepository) GetOrCreateByDomain(domain string) (*models.Shop, error) {
	d := normalizeDomain(domain)
	if d == "" {
		return nil, errors.New("shop domain is required")
	}

	shop, err := r.GetByDomain(d)
	if err == nil {
		return shop, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	shop = &models.Shop{Domain: d}
	if err := r.db.Create(shop).Error; err != nil {
		// Lost a creation race; the row exists now.
		if existing, gerr := r.GetByDomain(d); gerr == nil {
			return existing, nil
		}
		return nil, err
	}
	return shop, nil
}

func (r *shopRepository) Update(shop *models.Shop) error {
	return r.db.Save(shop).Error
}

func (r *shopRepository) List(offset, limit int) ([]models.Shop, error) {
	var shops []models.Shop
	err := r.db.Offset(offset).Limit(limit).Order("domain asc").Find(&shops).Error
	return shops, err
}

func (r *shopRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Shop{}).Count(&count).Error
	return count, err
}

func normalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}
