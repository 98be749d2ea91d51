package workflow

import (
	"context"

	"bitbucket.org/partsadmin/parts_backend/models"
)

const entityUser = "user"

// CreateUser provisions an account and records the creation. The snapshot in
// the audit row never includes the password hash (see userFieldLabels).
func CreateUser(ctx context.Context, input *models.NewUser) (*models.User, error) {
	user, err := models.CreateUser(ctx, input)
	if err != nil {
		return nil, err
	}

	RecordAudit(ctx, entityUser, user.ID, "CREATE", nil, ResolveActor(ctx, ""))

	return user, nil
}

// UpdateUser revises an account. A password change shows up in the audit row
// only as the action itself, never as a value.
func UpdateUser(ctx context.Context, id int, input *models.NewUser) (*models.User, error) {
	before, err := models.GetUserModel(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := models.UpdateUser(ctx, id, input); err != nil {
		return nil, err
	}
	after, err := models.GetUserModel(ctx, id)
	if err != nil {
		return nil, err
	}

	if diff := BuildChangedFields(before, after, userFieldLabels); diff != nil {
		RecordAudit(ctx, entityUser, id, "UPDATE", MarshalChangedFields(diff),
			ResolveActor(ctx, ""))
	}

	return after, nil
}

func DeleteUser(ctx context.Context, id int) (*models.User, error) {
	user, err := models.DeleteUser(ctx, id)
	if err != nil {
		return nil, err
	}

	RecordAudit(ctx, entityUser, id, "DELETE", nil, ResolveActor(ctx, ""))

	return user, nil
}
