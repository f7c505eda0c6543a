package forms

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pumped-fn/pumped-forms/pkg/control"
	"github.com/pumped-fn/pumped-forms/pkg/reactive"
)

func tagSpec(tag string) Spec {
	return Spec{
		Name: tag,
		SetupField: func(b FieldSetup) {
			b.Control().Tag(tag)
		},
		SetupForm: func(b FormSetup) {
			b.Control().Tag(tag)
			b.Element().Tag(tag)
		},
	}
}

func valueField(built *[]*control.Value[string], opts ...UnitOption) *Field[string] {
	return FieldBy(func(o *control.Options) control.Valued[string] {
		v := control.NewValue("", o)
		*built = append(*built, v)
		return v
	}, opts...)
}

func TestField_UnboundAccess(t *testing.T) {
	var built []*control.Value[string]
	field := valueField(&built)

	_, err := field.Control()
	if err == nil {
		t.Fatal("Expected error accessing unbound field")
	}
	if err.Error() != "[Field] is not properly shared yet" {
		t.Errorf("Unexpected error message: %q", err.Error())
	}
	if !errors.Is(err, ErrUnbound) {
		t.Errorf("Expected ErrUnbound, got %v", err)
	}

	var unbound *UnboundError
	if !errors.As(err, &unbound) {
		t.Errorf("Expected *UnboundError, got %T", err)
	}

	if _, err := field.Sharer(); !errors.Is(err, ErrUnbound) {
		t.Errorf("Expected ErrUnbound from Sharer, got %v", err)
	}
	if _, err := field.Body(); !errors.Is(err, ErrUnbound) {
		t.Errorf("Expected ErrUnbound from Body, got %v", err)
	}
	if _, err := field.Read(func(*FieldBody[string]) error { return nil }); !errors.Is(err, ErrUnbound) {
		t.Errorf("Expected ErrUnbound from Read, got %v", err)
	}
	if field.State() != StateUnbound {
		t.Errorf("Expected unbound state, got %s", field.State())
	}
	if len(built) != 0 {
		t.Errorf("Expected no control built before sharing, got %d", len(built))
	}

	named := valueField(&built, WithName("email"))
	if _, err := named.Control(); err == nil || err.Error() != "[Field email] is not properly shared yet" {
		t.Errorf("Unexpected error for named field: %v", err)
	}
}

func TestField_SharedByBuildsEagerly(t *testing.T) {
	scope := NewScope()
	defer scope.Dispose()

	var built []*control.Value[string]
	field := valueField(&built)

	if err := field.SharedBy(scope); err != nil {
		t.Fatalf("SharedBy failed: %v", err)
	}
	if len(built) != 1 {
		t.Fatalf("Expected 1 control built, got %d", len(built))
	}

	sharer, err := field.Sharer()
	if err != nil {
		t.Fatalf("Sharer failed: %v", err)
	}
	if sharer != scope {
		t.Error("Expected field to be shared by scope")
	}

	ctl, err := field.Control()
	if err != nil {
		t.Fatalf("Control failed: %v", err)
	}
	if ctl != built[0] {
		t.Error("Expected the built control")
	}

	body, err := field.Body()
	if err != nil {
		t.Fatalf("Body failed: %v", err)
	}
	if body.Field != field {
		t.Error("Expected body to reference the field")
	}
	if field.State() != StateHasBody {
		t.Errorf("Expected has-body state, got %s", field.State())
	}
}

func TestField_SharedByIsIdempotentForSameScope(t *testing.T) {
	scope := NewScope()
	defer scope.Dispose()

	var built []*control.Value[string]
	field := valueField(&built)

	for i := 0; i < 3; i++ {
		if err := field.SharedBy(scope); err != nil {
			t.Fatalf("SharedBy #%d failed: %v", i, err)
		}
	}
	if len(built) != 1 {
		t.Errorf("Expected 1 control built, got %d", len(built))
	}

	other := NewScope()
	defer other.Dispose()

	err := field.SharedBy(other)
	if !errors.Is(err, ErrAlreadyShared) {
		t.Errorf("Expected ErrAlreadyShared, got %v", err)
	}
	if sharer, _ := field.Sharer(); sharer != scope {
		t.Error("Expected the first scope to stay the sharer")
	}
}

func TestField_SharedByDisposedScope(t *testing.T) {
	scope := NewScope()
	scope.Dispose()

	var built []*control.Value[string]
	field := valueField(&built)

	if err := field.SharedBy(scope); !errors.Is(err, ErrScopeDisposed) {
		t.Errorf("Expected ErrScopeDisposed, got %v", err)
	}
	if field.State() != StateUnbound {
		t.Errorf("Expected unbound state, got %s", field.State())
	}
}

func TestField_PresetChangeReplacesControl(t *testing.T) {
	scope := NewScope()

	var built []*control.Value[string]
	field := valueField(&built)
	if err := field.SharedBy(scope); err != nil {
		t.Fatalf("SharedBy failed: %v", err)
	}

	contribution, err := scope.Provide(tagSpec("readonly"))
	if err != nil {
		t.Fatalf("Provide failed: %v", err)
	}
	if len(built) != 2 {
		t.Fatalf("Expected rebuild on provide, got %d controls", len(built))
	}
	if !built[0].Supply().IsOff() {
		t.Error("Expected superseded control to be released")
	}

	ctl, _ := field.Control()
	if ctl != built[1] {
		t.Error("Expected the rebuilt control")
	}
	if diff := cmp.Diff([]string{"readonly"}, ctl.Tags()); diff != "" {
		t.Errorf("Tags mismatch (-want +got):\n%s", diff)
	}

	if err := contribution.Withdraw(); err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	if len(built) != 3 {
		t.Fatalf("Expected rebuild on withdraw, got %d controls", len(built))
	}
	if !built[1].Supply().IsOff() {
		t.Error("Expected control built with withdrawn preset to be released")
	}
	ctl, _ = field.Control()
	if len(ctl.Tags()) != 0 {
		t.Errorf("Expected no tags after withdraw, got %v", ctl.Tags())
	}

	if err := contribution.Withdraw(); err != nil {
		t.Fatalf("Second withdraw failed: %v", err)
	}
	if len(built) != 3 {
		t.Errorf("Expected second withdraw to be a no-op, got %d controls", len(built))
	}

	scope.Dispose()

	if !built[2].Supply().IsOff() {
		t.Error("Expected last control to be released on dispose")
	}
	if field.State() != StateReleased {
		t.Errorf("Expected released state, got %s", field.State())
	}
	body, err := field.Body()
	if err != nil {
		t.Fatalf("Body after dispose failed: %v", err)
	}
	if body != nil {
		t.Error("Expected no body after dispose")
	}
}

func TestField_SameControlIsNotRedelivered(t *testing.T) {
	scope := NewScope()
	defer scope.Dispose()

	v := control.NewValue("fixed", nil)
	field := NewField(&FieldControls[string]{Control: v})
	if err := field.SharedBy(scope); err != nil {
		t.Fatalf("SharedBy failed: %v", err)
	}

	var bodies []*FieldBody[string]
	sub, err := field.Read(func(body *FieldBody[string]) error {
		bodies = append(bodies, body)
		return nil
	})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	defer sub.Release()

	if _, err := scope.Provide(tagSpec("a")); err != nil {
		t.Fatalf("Provide failed: %v", err)
	}
	if _, err := scope.Provide(tagSpec("b")); err != nil {
		t.Fatalf("Provide failed: %v", err)
	}

	if len(bodies) != 1 {
		t.Errorf("Expected only the replayed body, got %d", len(bodies))
	}
	if v.Supply().IsOff() {
		t.Error("Expected unchanged control to stay alive")
	}
}

func TestField_AbsentControls(t *testing.T) {
	scope := NewScope()
	defer scope.Dispose()

	builds := 0
	field := ProvideField(func(b *FieldBuilder[string]) (reactive.Source[*FieldControls[string]], error) {
		builds++
		return reactive.Const[*FieldControls[string]](nil), nil
	})
	if err := field.SharedBy(scope); err != nil {
		t.Fatalf("SharedBy failed: %v", err)
	}

	var bodies []*FieldBody[string]
	sub, err := field.Read(func(body *FieldBody[string]) error {
		bodies = append(bodies, body)
		return nil
	})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	defer sub.Release()

	if _, err := scope.Provide(tagSpec("a")); err != nil {
		t.Fatalf("Provide failed: %v", err)
	}

	if builds != 2 {
		t.Errorf("Expected 2 builds, got %d", builds)
	}
	if len(bodies) != 1 || bodies[0] != nil {
		t.Errorf("Expected a single absent body, got %v", bodies)
	}
	if field.State() != StateNoBody {
		t.Errorf("Expected no-body state, got %s", field.State())
	}
	ctl, err := field.Control()
	if err != nil || ctl != nil {
		t.Errorf("Expected no control and no error, got %v, %v", ctl, err)
	}
}

func TestField_ControlsBecomeAbsent(t *testing.T) {
	scope := NewScope()
	defer scope.Dispose()

	first := control.NewValue("first", nil)
	present := true
	field := ProvideField(FieldControlsOf(func(b *FieldBuilder[string]) (control.Valued[string], error) {
		if present {
			return first, nil
		}
		return nil, nil
	}))
	if err := field.SharedBy(scope); err != nil {
		t.Fatalf("SharedBy failed: %v", err)
	}

	present = false
	if _, err := scope.Provide(tagSpec("a")); err != nil {
		t.Fatalf("Provide failed: %v", err)
	}

	if !first.Supply().IsOff() {
		t.Error("Expected the prior control to be released")
	}
	if field.State() != StateNoBody {
		t.Errorf("Expected no-body state, got %s", field.State())
	}
}

// taggedValue is a value-typed control; comparing two of them with == panics
type taggedValue struct {
	*control.Value[string]
	labels []string
}

func TestField_TypedNilControlIsAbsent(t *testing.T) {
	scope := NewScope()
	defer scope.Dispose()

	field := ProvideField(FieldControlsOf(func(b *FieldBuilder[string]) (control.Valued[string], error) {
		var missing *control.Value[string]
		return missing, nil
	}))
	if err := field.SharedBy(scope); err != nil {
		t.Fatalf("SharedBy failed: %v", err)
	}

	if field.State() != StateNoBody {
		t.Errorf("Expected no-body state, got %s", field.State())
	}
	if body, _ := field.Body(); body != nil {
		t.Errorf("Expected no body, got %v", body)
	}
}

func TestField_ValueTypedControlsAreComparedByIdentity(t *testing.T) {
	scope := NewScope()
	defer scope.Dispose()

	var built []taggedValue
	field := ProvideField(FieldControlsOf(func(b *FieldBuilder[string]) (control.Valued[string], error) {
		ctl := taggedValue{Value: control.NewValue("", nil), labels: []string{"text"}}
		built = append(built, ctl)
		return ctl, nil
	}))
	if err := field.SharedBy(scope); err != nil {
		t.Fatalf("SharedBy failed: %v", err)
	}
	if _, err := scope.Provide(tagSpec("a")); err != nil {
		t.Fatalf("Provide failed: %v", err)
	}

	if len(built) != 2 {
		t.Fatalf("Expected 2 builds, got %d", len(built))
	}
	if !built[0].Supply().IsOff() {
		t.Error("Expected the prior control to be released")
	}
	ctl, _ := field.Control()
	if !control.Same(ctl, built[1]) {
		t.Error("Expected the rebuilt control to be delivered")
	}
}

func TestField_BuildErrorKeepsPreviousControl(t *testing.T) {
	scope := NewScope()
	defer scope.Dispose()

	failure := errors.New("factory failed")
	fail := false
	var built []*control.Value[string]
	field := ProvideField(FieldControlsOf(func(b *FieldBuilder[string]) (control.Valued[string], error) {
		if fail {
			return nil, failure
		}
		v, err := control.Build(b.Control(), func(o *control.Options) *control.Value[string] {
			return control.NewValue("", o)
		})
		if err != nil {
			return nil, err
		}
		built = append(built, v)
		return v, nil
	}), WithName("age"))
	if err := field.SharedBy(scope); err != nil {
		t.Fatalf("SharedBy failed: %v", err)
	}

	fail = true
	contribution, err := scope.Provide(tagSpec("a"))
	if !errors.Is(err, failure) {
		t.Fatalf("Expected factory error from Provide, got %v", err)
	}
	if contribution == nil {
		t.Fatal("Expected contribution to stay in place")
	}

	var buildErr *BuildError
	if !errors.As(err, &buildErr) {
		t.Fatalf("Expected *BuildError, got %T", err)
	}
	if buildErr.Unit != "[Field age]" {
		t.Errorf("Expected unit [Field age], got %s", buildErr.Unit)
	}
	if buildErr.Op != OpBuild {
		t.Errorf("Expected build operation, got %s", buildErr.Op)
	}

	ctl, _ := field.Control()
	if ctl != built[0] {
		t.Error("Expected the previous control to stay current")
	}
	if built[0].Supply().IsOff() {
		t.Error("Expected the previous control to stay alive")
	}

	fail = false
	if err := contribution.Withdraw(); err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	if len(built) != 2 {
		t.Fatalf("Expected recovery rebuild, got %d controls", len(built))
	}
	if !built[0].Supply().IsOff() {
		t.Error("Expected the previous control to be released after recovery")
	}
}

func TestField_InitialBuildErrorLeavesUnbound(t *testing.T) {
	scope := NewScope()
	defer scope.Dispose()

	failure := errors.New("no control")
	fail := true
	field := ProvideField(FieldControlsOf(func(b *FieldBuilder[string]) (control.Valued[string], error) {
		if fail {
			return nil, failure
		}
		return control.NewValue("", nil), nil
	}))

	if err := field.SharedBy(scope); !errors.Is(err, failure) {
		t.Fatalf("Expected factory error, got %v", err)
	}
	if field.State() != StateUnbound {
		t.Errorf("Expected unbound state, got %s", field.State())
	}

	fail = false
	if err := field.SharedBy(scope); err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if field.State() != StateHasBody {
		t.Errorf("Expected has-body state, got %s", field.State())
	}
}

func TestField_ReadFollowsLifecycle(t *testing.T) {
	scope := NewScope()

	var built []*control.Value[string]
	field := valueField(&built)
	if err := field.SharedBy(scope); err != nil {
		t.Fatalf("SharedBy failed: %v", err)
	}

	var controls []control.Valued[string]
	_, err := field.Read(func(body *FieldBody[string]) error {
		if body == nil {
			controls = append(controls, nil)
			return nil
		}
		controls = append(controls, body.Control)
		return nil
	})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if _, err := scope.Provide(tagSpec("a")); err != nil {
		t.Fatalf("Provide failed: %v", err)
	}
	scope.Dispose()

	if len(controls) != 3 {
		t.Fatalf("Expected 3 deliveries, got %d", len(controls))
	}
	if controls[0] != built[0] || controls[1] != built[1] || controls[2] != nil {
		t.Errorf("Unexpected deliveries: %v", controls)
	}
}

func TestField_PresetSeesBuilder(t *testing.T) {
	var seen []Unit
	var sharers []*Scope
	scope := NewScope(WithPreset(Spec{
		Name: "inspect",
		SetupField: func(b FieldSetup) {
			seen = append(seen, b.Unit())
			sharers = append(sharers, b.Sharer())
		},
	}))
	defer scope.Dispose()

	var built []*control.Value[string]
	field := valueField(&built)
	if err := field.SharedBy(scope); err != nil {
		t.Fatalf("SharedBy failed: %v", err)
	}

	if len(seen) != 1 || seen[0] != field {
		t.Errorf("Expected preset to see the field, got %v", seen)
	}
	if len(sharers) != 1 || sharers[0] != scope {
		t.Error("Expected preset to see the sharing scope")
	}
}
