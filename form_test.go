package forms

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pumped-fn/pumped-forms/pkg/control"
)

type signup struct {
	Email string
	Terms bool
}

type releaseRecorder struct {
	BaseExtension
	events []string
}

func newReleaseRecorder() *releaseRecorder {
	return &releaseRecorder{BaseExtension: NewBaseExtension("release-recorder")}
}

func (e *releaseRecorder) OnRelease(ev *ReleaseEvent) {
	kind := "control"
	if _, ok := ev.Control.(*control.Element); ok {
		kind = "element"
	}
	e.events = append(e.events, kind+":"+string(ev.Reason))
}

func TestForm_UnboundAccess(t *testing.T) {
	form := FormFor(control.NewValue(signup{}, nil), "signup")

	if _, err := form.Element(); err == nil || err.Error() != "[Form] is not properly shared yet" {
		t.Errorf("Unexpected error: %v", err)
	}
	if _, err := form.Control(); !errors.Is(err, ErrUnbound) {
		t.Errorf("Expected ErrUnbound, got %v", err)
	}
}

func TestForm_ElementRebuildKeepsControl(t *testing.T) {
	recorder := newReleaseRecorder()
	scope := NewScope(WithExtension(recorder))

	model := control.NewValue(signup{}, nil)
	form := FormFor(model, "signup")
	if err := form.SharedBy(scope); err != nil {
		t.Fatalf("SharedBy failed: %v", err)
	}

	first, err := form.Element()
	if err != nil {
		t.Fatalf("Element failed: %v", err)
	}
	if first.Name() != "signup" {
		t.Errorf("Expected element name signup, got %s", first.Name())
	}
	if first.Form() != model {
		t.Error("Expected element to submit the model control")
	}

	if _, err := scope.Provide(tagSpec("a")); err != nil {
		t.Fatalf("Provide failed: %v", err)
	}

	second, _ := form.Element()
	if second == first {
		t.Fatal("Expected a rebuilt element")
	}
	if !first.Supply().IsOff() {
		t.Error("Expected the prior element to be released")
	}
	if model.Supply().IsOff() {
		t.Error("Expected the unchanged control to stay alive")
	}
	if diff := cmp.Diff([]string{"a"}, second.Tags()); diff != "" {
		t.Errorf("Element tags mismatch (-want +got):\n%s", diff)
	}

	scope.Dispose()

	if !second.Supply().IsOff() || !model.Supply().IsOff() {
		t.Error("Expected element and control to be released on dispose")
	}

	want := []string{"element:superseded", "element:teardown", "control:teardown"}
	if diff := cmp.Diff(want, recorder.events); diff != "" {
		t.Errorf("Release events mismatch (-want +got):\n%s", diff)
	}
}

func TestForm_BothControlsRebuilt(t *testing.T) {
	recorder := newReleaseRecorder()
	scope := NewScope(WithExtension(recorder))
	defer scope.Dispose()

	var models []*control.Value[signup]
	form := FormBy(func(o *control.Options) control.Valued[signup] {
		v := control.NewValue(signup{}, o)
		models = append(models, v)
		return v
	}, nil, WithName("signup"))
	if err := form.SharedBy(scope); err != nil {
		t.Fatalf("SharedBy failed: %v", err)
	}

	element, _ := form.Element()
	if element.Name() != "signup" {
		t.Errorf("Expected default element to be named after the form, got %s", element.Name())
	}

	if _, err := scope.Provide(tagSpec("a")); err != nil {
		t.Fatalf("Provide failed: %v", err)
	}

	if len(models) != 2 {
		t.Fatalf("Expected 2 model controls, got %d", len(models))
	}
	if !models[0].Supply().IsOff() || !element.Supply().IsOff() {
		t.Error("Expected prior control and element to be released")
	}

	want := []string{"element:superseded", "control:superseded"}
	if diff := cmp.Diff(want, recorder.events); diff != "" {
		t.Errorf("Release events mismatch (-want +got):\n%s", diff)
	}

	body, err := form.Body()
	if err != nil {
		t.Fatalf("Body failed: %v", err)
	}
	if body.Form != form || body.Control != models[1] {
		t.Error("Unexpected body")
	}
	if diff := cmp.Diff([]string{"a"}, body.Control.Tags()); diff != "" {
		t.Errorf("Control tags mismatch (-want +got):\n%s", diff)
	}
}

func TestForm_SameControlsAreNotRedelivered(t *testing.T) {
	scope := NewScope()
	defer scope.Dispose()

	model := control.NewValue(signup{}, nil)
	element := control.NewElement("fixed", model, nil)
	form := NewForm(&FormControls[signup]{Control: model, Element: element})
	if err := form.SharedBy(scope); err != nil {
		t.Fatalf("SharedBy failed: %v", err)
	}

	deliveries := 0
	sub, err := form.Read(func(*FormBody[signup]) error {
		deliveries++
		return nil
	})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	defer sub.Release()

	if _, err := scope.Provide(tagSpec("a")); err != nil {
		t.Fatalf("Provide failed: %v", err)
	}

	if deliveries != 1 {
		t.Errorf("Expected a single delivery, got %d", deliveries)
	}
	if element.Supply().IsOff() || model.Supply().IsOff() {
		t.Error("Expected unchanged controls to stay alive")
	}
}

func TestForm_SetupFormRunsElementSteps(t *testing.T) {
	scope := NewScope(WithPreset(Spec{
		Name: "submit",
		SetupForm: func(b FormSetup) {
			b.Element().Tag("submit")
		},
	}))
	defer scope.Dispose()

	form := FormFor(control.NewValue(signup{}, nil), "signup")
	field := FieldBy(func(o *control.Options) control.Valued[string] {
		return control.NewValue("", o)
	})
	if err := form.SharedBy(scope); err != nil {
		t.Fatalf("SharedBy form failed: %v", err)
	}
	if err := field.SharedBy(scope); err != nil {
		t.Fatalf("SharedBy field failed: %v", err)
	}

	element, _ := form.Element()
	if diff := cmp.Diff([]string{"submit"}, element.Tags()); diff != "" {
		t.Errorf("Element tags mismatch (-want +got):\n%s", diff)
	}

	ctl, _ := field.Control()
	if len(ctl.Tags()) != 0 {
		t.Errorf("Expected form-only spec to leave fields untouched, got %v", ctl.Tags())
	}
}
