package commands

const (
	// KindInstructorScorePoint identifies a tally point for the instructor.
	KindInstructorScorePoint Kind = "instructor_score_point"
	// KindPeerScorePoint identifies a tally point for the peer.
	KindPeerScorePoint Kind = "peer_score_point"
)

// ScorePoint awards one point to a party's running tally.
type ScorePoint struct {
	Base

	Party Party
	Point string
}

// NewScorePoint creates a score-point command for the given party.
func NewScorePoint(party Party, point string) ScorePoint {
	kind := KindInstructorScorePoint
	if party == PartyPeer {
		kind = KindPeerScorePoint
	}

	return ScorePoint{Base: NewBase(kind), Party: party, Point: point}
}
