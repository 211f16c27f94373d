package article

import (
	"fmt"

	"github.com/shelfgrid/platform/pkg/common/models"
)

// BuildError is a structural failure while shaping an article. It is
// distinguishable from gateway/network errors so callers can tell a broken
// entity from a broken connection.
type BuildError struct {
	EntityType string
	Reason     string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("article build failed for %s: %s", e.EntityType, e.Reason)
}

// Syncable is the closed set of entities that can be mirrored into AIMS.
// ExternalKey returns (key, false) when the entity has nothing to push,
// which is a valid outcome, not an error.
type Syncable interface {
	EntityType() string
	ExternalKey() (string, bool)
	DisplayName() string
	Label() string
	Attributes() map[string]interface{}
}

// Space is a physical slot whose external key is its own external id.
type Space struct {
	ExternalID string
	Name       string
	LabelCode  string
	Data       map[string]interface{}
}

func (s Space) EntityType() string { return models.EntityTypeSpace }

func (s Space) ExternalKey() (string, bool) { return s.ExternalID, true }

func (s Space) DisplayName() string { return s.Name }

func (s Space) Label() string { return s.LabelCode }

func (s Space) Attributes() map[string]interface{} { return s.Data }

// Person is keyed by the slot it occupies. An unassigned person has no
// article key and is skipped by the builder.
type Person struct {
	Name            string
	AssignedSpaceID string
	LabelCode       string
	Data            map[string]interface{}
}

func (p Person) EntityType() string { return models.EntityTypePerson }

func (p Person) ExternalKey() (string, bool) {
	if p.AssignedSpaceID == "" {
		return "", false
	}
	return p.AssignedSpaceID, true
}

func (p Person) DisplayName() string { return p.Name }

func (p Person) Label() string { return p.LabelCode }

func (p Person) Attributes() map[string]interface{} { return p.Data }

// ConferenceRoom is keyed by its external id with a "C" prefix to keep room
// articles out of the space keyspace.
type ConferenceRoom struct {
	ExternalID string
	Name       string
	LabelCode  string
	Data       map[string]interface{}
}

func (c ConferenceRoom) EntityType() string { return models.EntityTypeConference }

func (c ConferenceRoom) ExternalKey() (string, bool) {
	if c.ExternalID == "" {
		return "", true
	}
	return ConferenceKey(c.ExternalID), true
}

func (c ConferenceRoom) DisplayName() string { return c.Name }

func (c ConferenceRoom) Label() string { return c.LabelCode }

// Attributes adds the derived meeting fields labels render: whether the room
// is currently booked and the meeting window line.
func (c ConferenceRoom) Attributes() map[string]interface{} {
	attrs := make(map[string]interface{}, len(c.Data)+2)
	for k, v := range c.Data {
		attrs[k] = v
	}

	subject, _ := c.Data["meeting_subject"].(string)
	start, _ := c.Data["meeting_start"].(string)
	end, _ := c.Data["meeting_end"].(string)
	attrs["occupied"] = subject != ""
	if start != "" && end != "" {
		attrs["meeting_window"] = start + " - " + end
	}
	return attrs
}

// ConferenceKey derives the AIMS article key for a room's external id.
func ConferenceKey(externalID string) string {
	return "C" + externalID
}

// Build shapes the AIMS article for a syncable entity per the company's
// article format. Returns (nil, nil) when the entity has nothing to push.
// Pure: no network or persistence access.
func Build(s Syncable, format models.ArticleFormat) (*models.Article, error) {
	key, ok := s.ExternalKey()
	if !ok {
		return nil, nil
	}
	if key == "" {
		return nil, &BuildError{EntityType: s.EntityType(), Reason: "missing external key"}
	}

	data := project(s.Attributes(), format.Fields)
	data["entityType"] = s.EntityType()

	return &models.Article{
		ArticleID:   key,
		ArticleName: s.DisplayName(),
		LabelCode:   s.Label(),
		Data:        data,
	}, nil
}

// project limits the attribute bag to the fields the company's format names.
// An empty field list passes everything through.
func project(attrs map[string]interface{}, fields []string) map[string]interface{} {
	out := make(map[string]interface{}, len(attrs)+1)
	if len(fields) == 0 {
		for k, v := range attrs {
			out[k] = v
		}
		return out
	}
	for _, field := range fields {
		if v, ok := attrs[field]; ok {
			out[field] = v
		}
	}
	return out
}
