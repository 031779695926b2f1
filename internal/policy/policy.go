// Package policy decides what an intercepted access attempt is allowed to
// do: sacred-zone and prefix-boundary evaluation for path targets,
// network/device/socket rules, and the process-spawn evaluator, all
// updating the session's monotonic BehaviorProfile as a side effect.
package policy

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"winewarden/internal/types"
)

// NetworkConfig controls the one conditional network rule: Red-tier
// malicious-destination blocking.
type NetworkConfig struct {
	BlockMaliciousOnRed bool
}

// Engine evaluates AccessAttempts against sacred zones, the prefix
// boundary, the current trust tier, network configuration, and the
// process-spawn rules, mutating a BehaviorProfile and ProcessTracker as
// it goes.
type Engine struct {
	Zones      []types.SacredZone
	PrefixRoot string
	Tier       types.TrustTier
	Network    NetworkConfig
	Process    ProcessConfig
	Profile    *types.BehaviorProfile
	Tracker    *types.ProcessTracker
}

// New returns an Engine with a fresh BehaviorProfile and ProcessTracker.
func New(zones []types.SacredZone, prefixRoot string, tier types.TrustTier, net NetworkConfig, proc ProcessConfig) *Engine {
	return &Engine{
		Zones:      zones,
		PrefixRoot: prefixRoot,
		Tier:       tier,
		Network:    net,
		Process:    proc,
		Profile:    &types.BehaviorProfile{},
		Tracker:    types.NewProcessTracker(),
	}
}

// EvaluatePath evaluates a path target: the first matching zone decides;
// absent a match, paths under PrefixRoot are allowed and paths outside it
// are denied with systemic risk.
func (e *Engine) EvaluatePath(path string, isWrite bool) types.PolicyDecision {
	if isWrite {
		e.Profile.RecordFileModification()
	}

	for _, z := range e.Zones {
		if zoneMatches(z, path) {
			decision := zoneDecision(z)
			if decision.SystemicRisk {
				e.Profile.RecordSensitivePath()
			}
			e.apply(decision)
			return decision
		}
	}

	if isUnderPrefix(path, e.PrefixRoot) {
		decision := types.PolicyDecision{Action: types.ActionAllow}
		e.apply(decision)
		return decision
	}

	decision := types.PolicyDecision{
		Action:       types.ActionDeny,
		Reason:       "access outside prefix blocked",
		SystemicRisk: true,
	}
	e.apply(decision)
	return decision
}

// EvaluateNetwork evaluates a network target: Allow unless the tier is
// Red and malicious-blocking is enabled.
func (e *Engine) EvaluateNetwork(target types.NetworkTarget) types.PolicyDecision {
	e.Profile.RecordOutboundConnection()

	var decision types.PolicyDecision
	if e.Tier == types.TrustRed && e.Network.BlockMaliciousOnRed {
		decision = types.PolicyDecision{
			Action:       types.ActionDeny,
			Reason:       fmt.Sprintf("network access to %s:%d blocked under red tier", target.Host, target.Port),
			SystemicRisk: true,
		}
	} else {
		decision = types.PolicyDecision{Action: types.ActionAllow}
	}
	e.apply(decision)
	return decision
}

// EvaluateDeviceOrSocket unconditionally denies device and raw-socket
// targets.
func (e *Engine) EvaluateDeviceOrSocket(name string) types.PolicyDecision {
	decision := types.PolicyDecision{
		Action:       types.ActionDeny,
		Reason:       fmt.Sprintf("device/socket access to %s denied", name),
		SystemicRisk: true,
	}
	e.apply(decision)
	return decision
}

// EvaluateProcess runs the spawn rules for a process name observed by
// the process watcher, keeping the behavior profile's child count in
// step with the tracker.
func (e *Engine) EvaluateProcess(name string) types.PolicyDecision {
	decision := EvaluateProcessSpawn(e.Process, e.Tracker, name)
	if decision.Action == types.ActionAllow {
		e.Profile.ChildProcessCount++
	}
	e.apply(decision)
	return decision
}

func (e *Engine) apply(d types.PolicyDecision) {
	if d.Action == types.ActionDeny {
		e.Profile.RecordDenied(d.Reason)
	}
}

// zoneDecision maps a matched zone's action onto a decision. Everything
// except an explicit Allow touches a sacred path, so Deny, Redirect, and
// Virtualize all carry systemic risk.
func zoneDecision(z types.SacredZone) types.PolicyDecision {
	switch z.Action {
	case types.ZoneAllow:
		return types.PolicyDecision{Action: types.ActionAllow, ZoneLabel: z.Label, Reason: fmt.Sprintf("access allowed: %s", z.Label)}
	case types.ZoneDeny:
		return types.PolicyDecision{Action: types.ActionDeny, ZoneLabel: z.Label, Reason: fmt.Sprintf("access denied: %s", z.Label), SystemicRisk: true}
	case types.ZoneRedirect:
		return types.PolicyDecision{Action: types.ActionRedirect, ZoneLabel: z.Label, Path: z.RedirectTo, Reason: fmt.Sprintf("access redirected: %s", z.Label), SystemicRisk: true}
	case types.ZoneVirtualize:
		return types.PolicyDecision{Action: types.ActionVirtualize, ZoneLabel: z.Label, Path: z.RedirectTo, Reason: fmt.Sprintf("access virtualized: %s", z.Label), SystemicRisk: true}
	default:
		return types.PolicyDecision{Action: types.ActionDeny, ZoneLabel: z.Label, Reason: "unknown zone action", SystemicRisk: true}
	}
}

// zoneMatches matches a zone's Path against candidate. A Path containing
// glob metacharacters is matched with doublestar so zone configuration may
// use "**"-style nested patterns; a plain directory path uses the literal
// path-prefix rule (types.SacredZone.Matches).
func zoneMatches(z types.SacredZone, candidate string) bool {
	if strings.ContainsAny(z.Path, "*?[") {
		ok, err := doublestar.Match(z.Path, strings.TrimPrefix(candidate, "/"))
		return err == nil && ok
	}
	return z.Matches(candidate)
}

func isUnderPrefix(path, prefixRoot string) bool {
	if prefixRoot == "" {
		return false
	}
	z := types.SacredZone{Path: prefixRoot}
	return z.Matches(path)
}
