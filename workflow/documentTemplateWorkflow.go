package workflow

import (
	"context"

	"bitbucket.org/partsadmin/parts_backend/models"
)

const (
	entityDocumentTemplate  = "document_template"
	entityGeneratedDocument = "generated_document"
)

func CreateDocumentTemplate(ctx context.Context, input *models.NewDocumentTemplate) (*models.DocumentTemplate, error) {
	template, err := models.CreateDocumentTemplate(ctx, input)
	if err != nil {
		return nil, err
	}

	RecordAudit(ctx, entityDocumentTemplate, template.ID, "CREATE", nil,
		ResolveActor(ctx, input.CreatedBy))

	return template, nil
}

func UpdateDocumentTemplate(ctx context.Context, id int, input *models.NewDocumentTemplate) (*models.DocumentTemplate, error) {
	before, err := models.GetDocumentTemplate(ctx, id)
	if err != nil {
		return nil, err
	}

	after, err := models.UpdateDocumentTemplate(ctx, id, input)
	if err != nil {
		return nil, err
	}

	if diff := BuildChangedFields(before, after, documentTemplateFieldLabels); diff != nil {
		RecordAudit(ctx, entityDocumentTemplate, id, "UPDATE", MarshalChangedFields(diff),
			ResolveActor(ctx, ""))
	}

	return after, nil
}

func DeleteDocumentTemplate(ctx context.Context, id int) (*models.DocumentTemplate, error) {
	template, err := models.DeleteDocumentTemplate(ctx, id)
	if err != nil {
		return nil, err
	}

	RecordAudit(ctx, entityDocumentTemplate, id, "DELETE", nil, ResolveActor(ctx, ""))

	return template, nil
}

func CreateGeneratedDocument(ctx context.Context, input *models.NewGeneratedDocument) (*models.GeneratedDocument, error) {
	document, err := models.CreateGeneratedDocument(ctx, input)
	if err != nil {
		return nil, err
	}

	RecordAudit(ctx, entityGeneratedDocument, document.ID, "CREATE", nil,
		ResolveActor(ctx, input.GeneratedBy))

	return document, nil
}

func DeleteGeneratedDocument(ctx context.Context, id int) (*models.GeneratedDocument, error) {
	document, err := models.DeleteGeneratedDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	RecordAudit(ctx, entityGeneratedDocument, id, "DELETE", nil, ResolveActor(ctx, ""))

	return document, nil
}
