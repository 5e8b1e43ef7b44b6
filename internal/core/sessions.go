package core

import "context"

// GetOrCreate returns a copy of the session for key, creating it if needed
func GetOrCreate(ctx context.Context, store SessionStore, key string) (*Session, error) {
	var out *Session
	err := store.Update(ctx, key, func(s *Session) error {
		out = s.Clone()
		return nil
	})
	return out, err
}

// AppendTurn appends turn to the session for key
func AppendTurn(ctx context.Context, store SessionStore, key string, turn Turn) error {
	return store.Update(ctx, key, func(s *Session) error {
		s.AppendTurn(turn)
		return nil
	})
}

// MergeIntelligence folds bundle into the session for key
func MergeIntelligence(ctx context.Context, store SessionStore, key string, bundle IntelligenceBundle) error {
	return store.Update(ctx, key, func(s *Session) error {
		s.MergeIntelligence(bundle)
		return nil
	})
}

// IncrementAndGetTurnCount returns the counterpart turn count of the session
// for key after a turn of the given role has been appended with AppendTurn,
// which is the only place the count moves. The count is derived from the
// stored turns, so it always equals the number of counterpart turns.
func IncrementAndGetTurnCount(ctx context.Context, store SessionStore, key string, role Role) (int, error) {
	var n int
	err := store.Update(ctx, key, func(s *Session) error {
		n = s.CounterpartTurns()
		s.TurnCount = n
		return nil
	})
	return n, err
}
