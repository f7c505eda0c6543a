// Package presets provides ready-made preset specs for form units.
package presets

import (
	"fmt"
	"strings"
	"sync"

	forms "github.com/pumped-fn/pumped-forms"
	"github.com/pumped-fn/pumped-forms/pkg/control"
)

var (
	// SchedulerTag sets the render scheduler attached by Default
	SchedulerTag = forms.NewTag[control.Scheduler]("presets.render-scheduler")
	// NamespaceTag sets the namespace aliaser attached by Default
	NamespaceTag = forms.NewTag[control.NamespaceAliaser]("presets.namespace-aliaser")
)

// Default returns a preset Spec attaching a render scheduler and a namespace
// aliaser to every control built for a unit.
//
// Both are taken from the sharing scope's tags. Without tags, controls are
// rendered immediately and share one process-wide namespace aliaser.
func Default() forms.Spec {
	return forms.Spec{
		Name: "default",
		SetupField: func(b forms.FieldSetup) {
			setupDefaults(b.Sharer(), b.Control())
		},
		SetupForm: func(b forms.FormSetup) {
			setupDefaults(b.Sharer(), b.Control())
			setupDefaults(b.Sharer(), b.Element())
		},
	}
}

func setupDefaults(scope *forms.Scope, b *control.Builder) {
	scheduler := SchedulerTag.GetOrDefault(scope, control.ImmediateScheduler)
	aliaser := NamespaceTag.GetOrDefault(scope, defaultAliaser)

	control.Provide(b, control.RenderSchedulerKind, scheduler)
	control.Provide(b, control.NamespaceKind, aliaser)
}

var defaultAliaser = NewNamespaceAliaser()

// NewNamespaceAliaser creates an aliaser assigning a unique alias to each
// namespace URI. The alias is derived from the last URI segment and numbered
// when already taken.
func NewNamespaceAliaser() control.NamespaceAliaser {
	var (
		mu      sync.Mutex
		aliases = make(map[string]string)
		used    = make(map[string]bool)
	)

	return func(ns string) string {
		mu.Lock()
		defer mu.Unlock()

		if alias, ok := aliases[ns]; ok {
			return alias
		}

		base := aliasBase(ns)
		alias := base
		for n := 2; used[alias]; n++ {
			alias = fmt.Sprintf("%s%d", base, n)
		}
		used[alias] = true
		aliases[ns] = alias
		return alias
	}
}

func aliasBase(ns string) string {
	ns = strings.TrimRight(ns, "/#")
	if i := strings.LastIndexAny(ns, "/:#"); i >= 0 {
		ns = ns[i+1:]
	}

	var sb strings.Builder
	for _, r := range strings.ToLower(ns) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9' && sb.Len() > 0) {
			sb.WriteRune(r)
		}
	}
	if sb.Len() == 0 {
		return "ns"
	}
	return sb.String()
}
