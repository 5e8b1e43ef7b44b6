package core

// ScoreThreat derives a threat level from accumulated intelligence and the
// classifier confidence of the current turn. Raising either input never
// lowers the result.
func ScoreThreat(bundle IntelligenceBundle, confidence float64) ThreatLevel {
	items := bundle.Count()

	switch {
	case confidence >= 0.9 && items >= 3:
		return ThreatCritical
	case confidence >= 0.7 && items >= 2:
		return ThreatHigh
	case confidence >= 0.5 || items >= 1:
		return ThreatMedium
	default:
		return ThreatLow
	}
}
