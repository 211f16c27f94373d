package article

import (
	"errors"
	"testing"

	"github.com/shelfgrid/platform/pkg/common/models"
)

func TestBuildSpaceArticle(t *testing.T) {
	space := Space{
		ExternalID: "A100",
		Name:       "Desk 100",
		LabelCode:  "L-42",
		Data:       map[string]interface{}{"floor": "3", "zone": "east"},
	}

	art, err := Build(space, models.ArticleFormat{IDField: "articleId", NameField: "articleName"})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if art == nil {
		t.Fatal("expected an article for a space")
	}
	if art.ArticleID != "A100" || art.ArticleName != "Desk 100" || art.LabelCode != "L-42" {
		t.Fatalf("unexpected article: %+v", art)
	}
	if art.Data["floor"] != "3" {
		t.Fatalf("expected data passthrough, got %+v", art.Data)
	}
}

func TestBuildUnassignedPersonIsSkip(t *testing.T) {
	person := Person{Name: "Dana", Data: map[string]interface{}{"title": "Engineer"}}

	art, err := Build(person, models.ArticleFormat{})
	if err != nil {
		t.Fatalf("unassigned person must not error: %v", err)
	}
	if art != nil {
		t.Fatalf("expected nil article for unassigned person, got %+v", art)
	}
}

func TestBuildAssignedPersonUsesSlotKey(t *testing.T) {
	person := Person{Name: "Dana", AssignedSpaceID: "SLOT-7", LabelCode: "L-1"}

	art, err := Build(person, models.ArticleFormat{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if art.ArticleID != "SLOT-7" {
		t.Fatalf("person article must be keyed by assigned slot, got %q", art.ArticleID)
	}
}

func TestBuildConferenceRoomDerivesMeetingFields(t *testing.T) {
	room := ConferenceRoom{
		ExternalID: "42",
		Name:       "Willow",
		Data: map[string]interface{}{
			"meeting_subject": "Quarterly review",
			"meeting_start":   "14:00",
			"meeting_end":     "15:00",
		},
	}

	art, err := Build(room, models.ArticleFormat{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if art.ArticleID != "C42" {
		t.Fatalf("room key must carry the C prefix, got %q", art.ArticleID)
	}
	if art.Data["occupied"] != true {
		t.Fatalf("expected occupied=true, got %+v", art.Data)
	}
	if art.Data["meeting_window"] != "14:00 - 15:00" {
		t.Fatalf("unexpected meeting window: %+v", art.Data)
	}
}

func TestBuildMissingKeyIsBuildError(t *testing.T) {
	space := Space{Name: "orphan"}

	_, err := Build(space, models.ArticleFormat{})
	var buildErr *BuildError
	if !errors.As(err, &buildErr) {
		t.Fatalf("expected BuildError, got %v", err)
	}
}

func TestBuildProjectsFormatFields(t *testing.T) {
	space := Space{
		ExternalID: "A1",
		Name:       "Desk",
		Data:       map[string]interface{}{"floor": "3", "zone": "east", "secret": "x"},
	}

	art, err := Build(space, models.ArticleFormat{Fields: []string{"floor"}})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if _, ok := art.Data["zone"]; ok {
		t.Fatal("zone should be projected out")
	}
	if _, ok := art.Data["secret"]; ok {
		t.Fatal("secret should be projected out")
	}
	if art.Data["floor"] != "3" {
		t.Fatalf("floor should survive projection: %+v", art.Data)
	}
}
