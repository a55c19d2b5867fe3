package models

import (
	"fmt"
	"time"

	"github.com/harold2001/financer-manager-api/shared/errs"
)

type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

func (t TransactionType) Valid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

// Document field names used in the "transactions" and "users" collections.
const (
	FieldUserID      = "user_id"
	FieldType        = "type"
	FieldAmount      = "amount"
	FieldCategory    = "category"
	FieldDate        = "date"
	FieldDescription = "description"

	FieldEmail     = "email"
	FieldName      = "name"
	FieldCreatedAt = "created_at"
)

// TransactionRecord is a persisted income or expense entry. UserID is always the
// authenticated owner and is never taken from request input.
type TransactionRecord struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Type        TransactionType `json:"type"`
	Amount      float64         `json:"amount"`
	Category    string          `json:"category"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
}

// OwnedBy reports whether uid may read or modify the record.
func (t *TransactionRecord) OwnedBy(uid string) bool {
	return t.UserID != "" && t.UserID == uid
}

// ToDocument returns the stored representation; the id lives outside the document.
func (t *TransactionRecord) ToDocument() map[string]any {
	return map[string]any{
		FieldUserID:      t.UserID,
		FieldType:        string(t.Type),
		FieldAmount:      t.Amount,
		FieldCategory:    t.Category,
		FieldDate:        t.Date,
		FieldDescription: t.Description,
	}
}

// TransactionFromDocument rebuilds a record from its stored representation.
func TransactionFromDocument(id string, doc map[string]any) (*TransactionRecord, error) {
	amount, err := docFloat(doc, FieldAmount)
	if err != nil {
		return nil, err
	}
	date, err := docTime(doc, FieldDate)
	if err != nil {
		return nil, err
	}
	return &TransactionRecord{
		ID:          id,
		UserID:      docString(doc, FieldUserID),
		Type:        TransactionType(docString(doc, FieldType)),
		Amount:      amount,
		Category:    docString(doc, FieldCategory),
		Date:        date,
		Description: docString(doc, FieldDescription),
	}, nil
}

// TransactionDraft is the untrusted shape a caller submits to create a transaction.
type TransactionDraft struct {
	Type        TransactionType `json:"type" validate:"required,oneof=income expense"`
	Amount      float64         `json:"amount" validate:"gt=0"`
	Category    string          `json:"category" validate:"required"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
}

func (d TransactionDraft) Validate() error {
	details := ValidateStruct(d)
	if d.Date.IsZero() {
		details = append(details, errs.FieldError{Field: FieldDate, Message: "This field is required", Type: "required"})
	}
	if len(details) > 0 {
		return &errs.ValidationError{Details: details}
	}
	return nil
}

// TransactionPatch is a sparse update: only Set fields are applied.
type TransactionPatch struct {
	Type        Optional[TransactionType]
	Amount      Optional[float64]
	Category    Optional[string]
	Date        Optional[time.Time]
	Description Optional[string]
}

func (p TransactionPatch) IsEmpty() bool {
	return !p.Type.Set && !p.Amount.Set && !p.Category.Set && !p.Date.Set && !p.Description.Set
}

// Validate checks only the fields being updated. Description may be cleared; the
// other fields may not.
func (p TransactionPatch) Validate() error {
	var details []errs.FieldError
	if p.Type.Set && !p.Type.Value.Valid() {
		details = append(details, errs.FieldError{Field: FieldType, Message: "Value must be one of: income expense", Type: "oneof"})
	}
	if p.Amount.Set && !(p.Amount.Value > 0) {
		details = append(details, errs.FieldError{Field: FieldAmount, Message: "Value must be greater than 0", Type: "gt"})
	}
	if p.Category.Set && p.Category.Value == "" {
		details = append(details, errs.FieldError{Field: FieldCategory, Message: "This field is required", Type: "required"})
	}
	if p.Date.Set && p.Date.Value.IsZero() {
		details = append(details, errs.FieldError{Field: FieldDate, Message: "This field is required", Type: "required"})
	}
	if len(details) > 0 {
		return &errs.ValidationError{Details: details}
	}
	return nil
}

// Fields returns the field-name to new-value map for the set fields.
func (p TransactionPatch) Fields() map[string]any {
	fields := make(map[string]any, 5)
	if p.Type.Set {
		fields[FieldType] = string(p.Type.Value)
	}
	if p.Amount.Set {
		fields[FieldAmount] = p.Amount.Value
	}
	if p.Category.Set {
		fields[FieldCategory] = p.Category.Value
	}
	if p.Date.Set {
		fields[FieldDate] = p.Date.Value
	}
	if p.Description.Set {
		fields[FieldDescription] = p.Description.Value
	}
	return fields
}

// Apply returns a copy of rec with the set fields replaced. ID and UserID are never touched.
func (p TransactionPatch) Apply(rec TransactionRecord) TransactionRecord {
	if p.Type.Set {
		rec.Type = p.Type.Value
	}
	if p.Amount.Set {
		rec.Amount = p.Amount.Value
	}
	if p.Category.Set {
		rec.Category = p.Category.Value
	}
	if p.Date.Set {
		rec.Date = p.Date.Value
	}
	if p.Description.Set {
		rec.Description = p.Description.Value
	}
	return rec
}

// TransactionFilter holds the optional list filters. Zero values mean "not filtered".
type TransactionFilter struct {
	Type      TransactionType
	Category  string
	StartDate *time.Time
	EndDate   *time.Time
}

func (f TransactionFilter) Validate() error {
	if f.Type != "" && !f.Type.Valid() {
		return errs.Invalid(FieldType, "oneof", "Value must be one of: income expense")
	}
	if f.StartDate != nil && f.EndDate != nil && f.StartDate.After(*f.EndDate) {
		return errs.Invalid("start_date", "ltefield", "start_date must not be after end_date")
	}
	return nil
}

// UserProfile is keyed by the identity provider's user id.
type UserProfile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *UserProfile) ToDocument() map[string]any {
	return map[string]any{
		FieldEmail:     u.Email,
		FieldName:      u.Name,
		FieldCreatedAt: u.CreatedAt,
	}
}

func ProfileFromDocument(id string, doc map[string]any) (*UserProfile, error) {
	createdAt, err := docTime(doc, FieldCreatedAt)
	if err != nil {
		return nil, err
	}
	return &UserProfile{
		ID:        id,
		Email:     docString(doc, FieldEmail),
		Name:      docString(doc, FieldName),
		CreatedAt: createdAt,
	}, nil
}

// ProfilePatch is the sparse profile update. Only the display name is editable;
// email belongs to the identity provider and created_at is immutable.
type ProfilePatch struct {
	Name Optional[string] `json:"name"`
}

func (p ProfilePatch) IsEmpty() bool {
	return !p.Name.Set
}

func (p ProfilePatch) Fields() map[string]any {
	fields := make(map[string]any, 1)
	if p.Name.Set {
		fields[FieldName] = p.Name.Value
	}
	return fields
}

// AuthSession is what registration and login hand back to the client.
type AuthSession struct {
	Token string
	User  UserProfile
}

func docString(doc map[string]any, key string) string {
	if s, ok := doc[key].(string); ok {
		return s
	}
	return ""
}

func docFloat(doc map[string]any, key string) (float64, error) {
	switch v := doc[key].(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("field %s: unexpected type %T", key, v)
	}
}

func docTime(doc map[string]any, key string) (time.Time, error) {
	switch v := doc[key].(type) {
	case time.Time:
		return v, nil
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}, fmt.Errorf("field %s: %w", key, err)
		}
		return t, nil
	case nil:
		return time.Time{}, nil
	default:
		return time.Time{}, fmt.Errorf("field %s: unexpected type %T", key, v)
	}
}
