package merge

import (
	"fmt"
	"sort"

	"permsync/core/fault"
)

// Strategy is the closed set of conflict resolution strategies. The one
// switch in Merge is exhaustive over these.
type Strategy int

const (
	// StrategyKeepLocal uses the entire local payload verbatim.
	StrategyKeepLocal Strategy = iota
	// StrategyKeepRemote uses the entire remote payload verbatim.
	StrategyKeepRemote
	// StrategyUnion keeps every element from both sides; conflicting
	// elements keep the local value.
	StrategyUnion
	// StrategyLocalWins is additive; conflicts resolve to the local value.
	StrategyLocalWins
	// StrategyRemoteWins is additive; conflicts resolve to the remote value.
	StrategyRemoteWins
	// StrategyInteractive asks a Prompter to resolve each conflict.
	StrategyInteractive
	// StrategyAbortOnConflict refuses to merge when any conflict exists.
	StrategyAbortOnConflict
)

var strategyNames = map[string]Strategy{
	"keep-local":        StrategyKeepLocal,
	"keep-remote":       StrategyKeepRemote,
	"union":             StrategyUnion,
	"local-wins":        StrategyLocalWins,
	"remote-wins":       StrategyRemoteWins,
	"interactive":       StrategyInteractive,
	"abort-on-conflict": StrategyAbortOnConflict,
}

// ParseStrategy maps a strategy name to its variant.
func ParseStrategy(name string) (Strategy, error) {
	s, ok := strategyNames[name]
	if !ok {
		return 0, fault.User(
			fmt.Sprintf("unknown merge strategy %q", name),
			"use one of: keep-local, keep-remote, union, local-wins, remote-wins, interactive, abort-on-conflict")
	}
	return s, nil
}

// String returns the strategy's configuration name.
func (s Strategy) String() string {
	for name, v := range strategyNames {
		if v == s {
			return name
		}
	}
	return "unknown"
}

// Conflict is one element whose serialized value differs between the two
// versions of a resource.
type Conflict struct {
	// Element identifies the conflicting element.
	Element string `json:"element"`
	// Local is the local serialized value.
	Local string `json:"local"`
	// Remote is the remote serialized value.
	Remote string `json:"remote"`
}

// Prompter resolves one conflict via a live human-input channel.
type Prompter interface {
	// Resolve returns the serialized value to use for the conflict.
	Resolve(c Conflict) (string, error)
}

// MergedPayload is the outcome of one merge.
type MergedPayload struct {
	// Content is the merged element set.
	Content Payload `json:"content"`
	// Conflicts lists the elements that differed, resolved or not.
	Conflicts []Conflict `json:"conflicts"`
	// Strategy is the strategy that produced Content.
	Strategy Strategy `json:"strategy"`
	// HasChanges reports whether Content differs from the local payload.
	// Callers treat a no-change merge as a no-op and skip the write.
	HasChanges bool `json:"has_changes"`
}

// DetectConflicts compares two payloads element by element and returns the
// elements whose values differ, sorted by element. Zero conflicts means
// nothing to merge, not an error.
func DetectConflicts(local, remote Payload) []Conflict {
	var out []Conflict
	for el, lv := range local {
		if rv, ok := remote[el]; ok && rv != lv {
			out = append(out, Conflict{Element: el, Local: lv, Remote: rv})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Element < out[j].Element })
	return out
}

// Merge resolves two versions of a resource under the given strategy.
// Union, local-wins and remote-wins are additive: elements unique to
// either side are always kept, only conflicting elements are decided by
// the tie-break rule. Interactive requires a Prompter and fails without
// one. Abort-on-conflict fails on the first conflict.
func Merge(local, remote Payload, strategy Strategy, prompter Prompter) (*MergedPayload, error) {
	conflicts := DetectConflicts(local, remote)

	var content Payload
	switch strategy {
	case StrategyKeepLocal:
		content = local.clone()
	case StrategyKeepRemote:
		content = remote.clone()
	case StrategyUnion, StrategyLocalWins:
		content = additive(local, remote, func(c Conflict) string { return c.Local })
	case StrategyRemoteWins:
		content = additive(local, remote, func(c Conflict) string { return c.Remote })
	case StrategyInteractive:
		if prompter == nil {
			return nil, fault.User(
				"interactive merge requires an input channel",
				"run interactively, or pick a non-interactive strategy such as local-wins")
		}
		resolved, err := resolveAll(local, remote, conflicts, prompter)
		if err != nil {
			return nil, err
		}
		content = resolved
	case StrategyAbortOnConflict:
		if len(conflicts) > 0 {
			return nil, fault.User(
				fmt.Sprintf("%d conflicting elements, aborting merge", len(conflicts)),
				"inspect the conflicts and re-run with a tie-breaking strategy")
		}
		content = additive(local, remote, nil)
	default:
		return nil, fault.Internal(fmt.Sprintf("unhandled merge strategy %d", strategy))
	}

	if err := content.validate(); err != nil {
		return nil, err
	}
	return &MergedPayload{
		Content:    content,
		Conflicts:  conflicts,
		Strategy:   strategy,
		HasChanges: !content.equal(local),
	}, nil
}

// additive keeps every element from both sides and applies tieBreak to
// elements present on both with different values.
func additive(local, remote Payload, tieBreak func(Conflict) string) Payload {
	out := remote.clone()
	for el, lv := range local {
		rv, shared := out[el]
		if shared && rv != lv && tieBreak != nil {
			out[el] = tieBreak(Conflict{Element: el, Local: lv, Remote: rv})
			continue
		}
		out[el] = lv
	}
	return out
}

// resolveAll builds the additive union with each conflict decided by the
// prompter.
func resolveAll(local, remote Payload, conflicts []Conflict, prompter Prompter) (Payload, error) {
	chosen := make(map[string]string, len(conflicts))
	for _, c := range conflicts {
		v, err := prompter.Resolve(c)
		if err != nil {
			return nil, fault.System(err, "conflict resolution aborted")
		}
		chosen[c.Element] = v
	}
	out := additive(local, remote, func(c Conflict) string { return chosen[c.Element] })
	return out, nil
}
