// Package trust implements the trust scorer, the on-disk trust store,
// and bounded trust history.
package trust

import (
	"fmt"

	"winewarden/internal/types"
)

// Weights configures how heavily each sub-score and penalty contributes to
// the final trust score
type Weights struct {
	NetworkWeight    float64
	FilesystemWeight float64
	ProcessWeight    float64

	OutboundConnectionPenalty float64
	SensitivePathPenalty      float64
	ChildProcessPenalty       float64
}

// DefaultWeights returns the scorer's baseline configuration.
func DefaultWeights() Weights {
	return Weights{
		NetworkWeight:    1.0,
		FilesystemWeight: 1.0,
		ProcessWeight:    1.0,

		OutboundConnectionPenalty: -5,
		SensitivePathPenalty:      -35,
		ChildProcessPenalty:       -5,
	}
}

const (
	baselineScore        = 75
	consistencyBonus     = 5
	deniedAttemptPenalty = -3
)

func tierModulation(tier types.TrustTier) int {
	switch tier {
	case types.TrustGreen:
		return 15
	case types.TrustRed:
		return -15
	default:
		return 0
	}
}

// Score computes a trust score for one session: baseline plus
// tier modulation, three weighted sub-scores, a direct denied-attempt
// penalty, and a consistency bonus, clamped to [0,100].
func Score(tier types.TrustTier, profile types.BehaviorProfile, w Weights) types.TrustScore {
	var notes []string

	networkSub := 0.0
	if profile.UniqueDestinations > 10 {
		networkSub += w.OutboundConnectionPenalty * float64(profile.UniqueDestinations) / 10
		notes = append(notes, fmt.Sprintf("%d unique outbound destinations", profile.UniqueDestinations))
	}
	if profile.DNSQueryCount > 50 {
		networkSub += -(float64(profile.DNSQueryCount-50) / 5)
		notes = append(notes, fmt.Sprintf("%d DNS queries", profile.DNSQueryCount))
	}

	fsSub := 0.0
	if profile.SensitivePathAttempts > 0 {
		fsSub += w.SensitivePathPenalty * float64(profile.SensitivePathAttempts)
		notes = append(notes, fmt.Sprintf("%d sensitive path attempts", profile.SensitivePathAttempts))
	}
	if profile.FileModifications > 100 {
		fsSub -= float64(profile.FileModifications-100) / 20
	}

	processSub := 0.0
	if profile.ChildProcessCount > 10 {
		processSub += w.ChildProcessPenalty * float64(profile.ChildProcessCount) / 10
		notes = append(notes, fmt.Sprintf("%d child processes", profile.ChildProcessCount))
	}

	total := float64(baselineScore + tierModulation(tier))
	total += networkSub * w.NetworkWeight
	total += fsSub * w.FilesystemWeight
	total += processSub * w.ProcessWeight
	total += deniedAttemptPenalty * float64(profile.DeniedAttempts)

	if len(profile.SuspiciousPatterns) == 0 && profile.DeniedAttempts == 0 {
		total += consistencyBonus
	}
	if profile.DeniedAttempts > 0 {
		notes = append(notes, fmt.Sprintf("%d denied attempts", profile.DeniedAttempts))
	}

	score := clamp(int(total), 0, 100)

	return types.TrustScore{
		Score:           score,
		RecommendedTier: recommendedTier(score),
		Assessment:      assessment(score),
		Notes:           notes,
	}
}

func recommendedTier(score int) types.TrustTier {
	switch {
	case score <= 25:
		return types.TrustRed
	case score <= 75:
		return types.TrustYellow
	default:
		return types.TrustGreen
	}
}

func assessment(score int) string {
	switch {
	case score <= 25:
		return "untrustworthy"
	case score <= 75:
		return "moderate"
	default:
		return "trustworthy"
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
