package board

// Store holds the one authoritative Position for an active game. All
// mutation goes through the legality oracle via Apply; the single
// exception is LoadAuthoritative, which accepts a trusted server snapshot
// verbatim during reconnection sync.
//
// Store is not safe for concurrent use; callers serialize access.
type Store struct {
	pos Position
}

func NewStore() *Store {
	return &Store{pos: Start()}
}

// Reset puts the store back at the standard initial position.
func (s *Store) Reset() {
	s.pos = Start()
}

// Position returns the current immutable snapshot.
func (s *Store) Position() Position { return s.pos }

// Turn returns whichever side is to move.
func (s *Store) Turn() Side { return s.pos.Turn() }

// Apply attempts one ply. The stored position advances only on success.
func (s *Store) Apply(mv Move) (Outcome, error) {
	next, out, err := s.pos.Apply(mv)
	if err != nil {
		return Outcome{}, err
	}
	s.pos = next
	return out, nil
}

// LoadAuthoritative replaces the stored position with a server snapshot,
// bypassing legality checks.
func (s *Store) LoadAuthoritative(fen string) error {
	pos, err := FromFEN(fen)
	if err != nil {
		return err
	}
	s.pos = pos
	return nil
}
