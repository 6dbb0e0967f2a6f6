package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/foodgram/backend/internal/logger"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

// TagService manages tags
type TagService struct {
	db *gorm.DB
}

var _ ITagService = (*TagService)(nil)

func NewTagService(db *gorm.DB) *TagService {
	return &TagService{db: db}
}

// ListTags returns every tag ordered by name
func (s *TagService) ListTags(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	if err := s.db.WithContext(ctx).Order("name").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return tags, nil
}

func (s *TagService) GetTag(ctx context.Context, id uint) (*models.Tag, error) {
	var tag models.Tag
	if err := s.db.WithContext(ctx).First(&tag, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("tag")
		}
		return nil, fmt.Errorf("failed to load tag: %w", err)
	}
	return &tag, nil
}

// checkUnique reports which unique tag column req collides on, ignoring exceptID
func (s *TagService) checkUnique(ctx context.Context, req *types.TagRequest, exceptID uint) error {
	for _, col := range []struct{ field, value string }{
		{"name", req.Name},
		{"slug", req.Slug},
		{"color", strings.ToUpper(req.Color)},
	} {
		var count int64
		q := s.db.WithContext(ctx).Model(&models.Tag{}).Where("UPPER("+col.field+") = UPPER(?)", col.value)
		if exceptID != 0 {
			q = q.Where("id <> ?", exceptID)
		}
		if err := q.Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check tag %s: %w", col.field, err)
		}
		if count > 0 {
			return NewValidationError(col.field, fmt.Sprintf("a tag with this %s already exists", col.field))
		}
	}
	return nil
}

func (s *TagService) CreateTag(ctx context.Context, req *types.TagRequest) (*models.Tag, error) {
	if err := s.checkUnique(ctx, req, 0); err != nil {
		return nil, err
	}
	tag := models.Tag{Name: req.Name, Slug: req.Slug, Color: strings.ToUpper(req.Color)}
	if err := s.db.WithContext(ctx).Create(&tag).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, NewValidationError("tag", "tag already exists")
		}
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}
	logger.L().Info("tag created", zap.Uint("tag_id", tag.ID), zap.String("slug", tag.Slug))
	return &tag, nil
}

func (s *TagService) UpdateTag(ctx context.Context, id uint, req *types.TagRequest) (*models.Tag, error) {
	tag, err := s.GetTag(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkUnique(ctx, req, id); err != nil {
		return nil, err
	}
	tag.Name, tag.Slug, tag.Color = req.Name, req.Slug, strings.ToUpper(req.Color)
	if err := s.db.WithContext(ctx).Save(tag).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, NewValidationError("tag", "tag already exists")
		}
		return nil, fmt.Errorf("failed to update tag: %w", err)
	}
	return tag, nil
}

// DeleteTag removes the tag and detaches it from every recipe
func (s *TagService) DeleteTag(ctx context.Context, id uint) error {
	tag, err := s.GetTag(ctx, id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM recipe_tags WHERE tag_id = ?", tag.ID).Error; err != nil {
			return fmt.Errorf("failed to detach tag: %w", err)
		}
		if err := tx.Delete(tag).Error; err != nil {
			return fmt.Errorf("failed to delete tag: %w", err)
		}
		return nil
	})
}

// LoadTags inserts tags, skipping ones whose unique columns already exist.
// It returns the number of rows inserted.
func (s *TagService) LoadTags(ctx context.Context, reqs []types.TagRequest) (int64, error) {
	if len(reqs) == 0 {
		return 0, nil
	}
	tags := make([]models.Tag, len(reqs))
	for i, r := range reqs {
		tags[i] = models.Tag{Name: r.Name, Slug: r.Slug, Color: strings.ToUpper(r.Color)}
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&tags, 100)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to load tags: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// IngredientService manages ingredients
type IngredientService struct {
	db *gorm.DB
}

var _ IIngredientService = (*IngredientService)(nil)

func NewIngredientService(db *gorm.DB) *IngredientService {
	return &IngredientService{db: db}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ListIngredients returns ingredients whose name starts with search,
// case-insensitively. An empty search returns everything.
func (s *IngredientService) ListIngredients(ctx context.Context, search string) ([]models.Ingredient, error) {
	q := s.db.WithContext(ctx).Order("name").Order("id")
	if search = strings.TrimSpace(search); search != "" {
		q = q.Where(`search_name LIKE ? ESCAPE '\'`, likeEscaper.Replace(strings.ToLower(search))+"%")
	}

	var ingredients []models.Ingredient
	if err := q.Find(&ingredients).Error; err != nil {
		return nil, fmt.Errorf("failed to list ingredients: %w", err)
	}
	return ingredients, nil
}

func (s *IngredientService) GetIngredient(ctx context.Context, id uint) (*models.Ingredient, error) {
	var ingredient models.Ingredient
	if err := s.db.WithContext(ctx).First(&ingredient, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("ingredient")
		}
		return nil, fmt.Errorf("failed to load ingredient: %w", err)
	}
	return &ingredient, nil
}

func errDuplicateIngredient() error {
	return NewValidationError("name", "an ingredient with this name and measurement unit already exists")
}

func (s *IngredientService) CreateIngredient(ctx context.Context, req *types.IngredientRequest) (*models.Ingredient, error) {
	ingredient := models.Ingredient{Name: req.Name, MeasurementUnit: req.MeasurementUnit}
	if err := s.db.WithContext(ctx).Create(&ingredient).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errDuplicateIngredient()
		}
		return nil, fmt.Errorf("failed to create ingredient: %w", err)
	}
	logger.L().Info("ingredient created", zap.Uint("ingredient_id", ingredient.ID))
	return &ingredient, nil
}

func (s *IngredientService) UpdateIngredient(ctx context.Context, id uint, req *types.IngredientRequest) (*models.Ingredient, error) {
	ingredient, err := s.GetIngredient(ctx, id)
	if err != nil {
		return nil, err
	}
	ingredient.Name, ingredient.MeasurementUnit = req.Name, req.MeasurementUnit
	if err := s.db.WithContext(ctx).Save(ingredient).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errDuplicateIngredient()
		}
		return nil, fmt.Errorf("failed to update ingredient: %w", err)
	}
	return ingredient, nil
}

// DeleteIngredient refuses to remove an ingredient that recipes still use
func (s *IngredientService) DeleteIngredient(ctx context.Context, id uint) error {
	ingredient, err := s.GetIngredient(ctx, id)
	if err != nil {
		return err
	}

	var used int64
	if err := s.db.WithContext(ctx).Model(&models.IngredientRecipe{}).Where("ingredient_id = ?", id).Count(&used).Error; err != nil {
		return fmt.Errorf("failed to check ingredient usage: %w", err)
	}
	if used > 0 {
		return NewValidationError("ingredient", "ingredient is used by recipes")
	}

	if err := s.db.WithContext(ctx).Delete(ingredient).Error; err != nil {
		return fmt.Errorf("failed to delete ingredient: %w", err)
	}
	return nil
}

// LoadIngredients bulk-inserts ingredients, skipping (name, unit) pairs that
// already exist. It returns the number of rows inserted.
func (s *IngredientService) LoadIngredients(ctx context.Context, reqs []types.IngredientRequest) (int64, error) {
	if len(reqs) == 0 {
		return 0, nil
	}
	ingredients := make([]models.Ingredient, len(reqs))
	for i, r := range reqs {
		ingredients[i] = models.Ingredient{Name: r.Name, MeasurementUnit: r.MeasurementUnit}
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&ingredients, 500)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to load ingredients: %w", res.Error)
	}
	return res.RowsAffected, nil
}
