package workflow

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"

	"bitbucket.org/partsadmin/parts_backend/config"
	"bitbucket.org/partsadmin/parts_backend/models"
	"bitbucket.org/partsadmin/parts_backend/utils"
)

// FieldChange pairs the old and new value of a single field.
type FieldChange struct {
	Before interface{} `json:"before"`
	After  interface{} `json:"after"`
}

// Field labels per entity, keyed by json tag. Fields missing from a table are
// excluded from the diff on purpose (ids, timestamps).
var incomingFieldLabels = map[string]string{
	"part_number":       "Part number",
	"category_id":       "Category",
	"part_name":         "Part name",
	"description":       "Description",
	"project_name":      "Project",
	"unit":              "Unit",
	"incoming_quantity": "Incoming quantity",
	"purchase_price":    "Purchase price",
	"currency":          "Currency",
	"exchange_rate":     "Exchange rate",
	"original_price":    "Original price",
	"purchase_date":     "Purchase date",
	"supplier":          "Supplier",
	"purchaser":         "Purchaser",
	"invoice_number":    "Invoice number",
	"note":              "Note",
}

var usageFieldLabels = map[string]string{
	"incoming_id":    "Incoming record",
	"part_number":    "Part number",
	"part_name":      "Part name",
	"quantity_used":  "Quantity used",
	"usage_location": "Usage location",
	"used_at":        "Used at",
}

var categoryFieldLabels = map[string]string{
	"category_name": "Category name",
	"category_code": "Category code",
	"is_active":     "Active",
}

// Password is deliberately absent: hashes never belong in an audit row.
var userFieldLabels = map[string]string{
	"username":  "Username",
	"name":      "Name",
	"email":     "Email",
	"phone":     "Phone",
	"is_active": "Active",
	"role":      "Role",
}

var documentTemplateFieldLabels = map[string]string{
	"template_name":       "Template name",
	"background_image_id": "Background image",
	"table_config":        "Table config",
	"fixed_texts":         "Fixed texts",
}

// BuildChangedFields diffs two snapshots of the same entity field by field.
// Returns nil when nothing in the label table changed, which callers use to
// skip the audit row entirely.
func BuildChangedFields(before interface{}, after interface{}, labels map[string]string) map[string]FieldChange {
	if before == nil || after == nil {
		return nil
	}

	beforeMap, err := snapshotToMap(before)
	if err != nil {
		return nil
	}
	afterMap, err := snapshotToMap(after)
	if err != nil {
		return nil
	}

	diff := make(map[string]FieldChange)
	for field, label := range labels {
		b, a := beforeMap[field], afterMap[field]
		if b == nil && a == nil {
			continue
		}
		if reflect.DeepEqual(b, a) {
			continue
		}
		diff[label] = FieldChange{Before: b, After: a}
	}
	if len(diff) == 0 {
		return nil
	}
	return diff
}

func snapshotToMap(obj interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// MarshalChangedFields serializes a diff for storage. A marshal failure
// degrades to nil: the audit row is still written, only without detail.
func MarshalChangedFields(diff map[string]FieldChange) *string {
	if diff == nil {
		return nil
	}
	raw, err := json.Marshal(diff)
	if err != nil {
		config.LogWarn(config.GetLogger(), "workflow", "MarshalChangedFields", "changed fields dropped", err)
		return nil
	}
	s := string(raw)
	return &s
}

// ResolveActor picks the audit actor: an explicit value wins, then the
// session user, then "system".
func ResolveActor(ctx context.Context, explicit string) string {
	if strings.TrimSpace(explicit) != "" {
		return explicit
	}
	if username, ok := utils.GetUsernameFromContext(ctx); ok && username != "" {
		return username
	}
	return "system"
}

// RecordAudit writes one audit row after the business transaction has
// committed. It runs on the main pool, never the caller's transaction, and
// swallows every failure: audit loss is acceptable, blocking the operation
// is not.
func RecordAudit(ctx context.Context, entityType string, entityId int, action string,
	changedFields *string, actor string) {

	audit := models.ActionAudit{
		EntityType:    entityType,
		EntityId:      entityId,
		Action:        action,
		ChangedFields: changedFields,
		Actor:         actor,
	}
	if err := models.InsertAudit(ctx, &audit); err != nil {
		config.LogWarn(config.GetLogger(), "workflow", "RecordAudit", entityType+" "+action, err)
		return
	}

	publishAuditEvent(ctx, &audit)
}

// publishAuditEvent fans the row out to Pub/Sub when AUDIT_TOPIC is set.
// Best-effort like the insert.
func publishAuditEvent(ctx context.Context, audit *models.ActionAudit) {
	topicName := config.AuditTopicName()
	if topicName == "" {
		return
	}
	client, err := config.GetPubSubClient(ctx)
	if err != nil {
		config.LogWarn(config.GetLogger(), "workflow", "publishAuditEvent", "pubsub client", err)
		return
	}

	payload, err := json.Marshal(audit)
	if err != nil {
		config.LogWarn(config.GetLogger(), "workflow", "publishAuditEvent", "marshal", err)
		return
	}
	if err := config.PublishMessage(ctx, client, topicName, payload); err != nil {
		config.LogWarn(config.GetLogger(), "workflow", "publishAuditEvent", topicName, err)
	}
}
