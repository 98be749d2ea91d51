package workflow

import (
	"context"

	"bitbucket.org/partsadmin/parts_backend/models"
)

const entityCategory = "category"

// CreateCategory adds a category and records the creation in the audit trail.
func CreateCategory(ctx context.Context, input *models.NewCategory) (*models.Category, error) {
	category, err := models.CreateCategory(ctx, input)
	if err != nil {
		return nil, err
	}

	RecordAudit(ctx, entityCategory, category.ID, "CREATE", nil, ResolveActor(ctx, ""))

	return category, nil
}

// UpdateCategory renames or recodes a category. The audit row carries a field
// diff and is skipped when nothing changed.
func UpdateCategory(ctx context.Context, id int, input *models.NewCategory) (*models.Category, error) {
	before, err := models.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := models.UpdateCategory(ctx, id, input); err != nil {
		return nil, err
	}
	after, err := models.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	if diff := BuildChangedFields(before, after, categoryFieldLabels); diff != nil {
		RecordAudit(ctx, entityCategory, id, "UPDATE", MarshalChangedFields(diff),
			ResolveActor(ctx, ""))
	}

	return after, nil
}

// DeactivateCategory retires a category from new registrations.
func DeactivateCategory(ctx context.Context, id int) (*models.Category, error) {
	before, err := models.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := models.DeactivateCategory(ctx, id); err != nil {
		return nil, err
	}
	after, err := models.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	if diff := BuildChangedFields(before, after, categoryFieldLabels); diff != nil {
		RecordAudit(ctx, entityCategory, id, "DEACTIVATE", MarshalChangedFields(diff),
			ResolveActor(ctx, ""))
	}

	return after, nil
}

func DeleteCategory(ctx context.Context, id int) (*models.Category, error) {
	category, err := models.DeleteCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	RecordAudit(ctx, entityCategory, id, "DELETE", nil, ResolveActor(ctx, ""))

	return category, nil
}
