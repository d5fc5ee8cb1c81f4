package httpserver

import "github.com/boazFridenberg/memory-game/internal/game"

// cardView is one grid cell. Content is only sent for face-up cards.
type cardView struct {
	ID      string `json:"id"`
	Content string `json:"content,omitempty"`
	FaceUp  bool   `json:"faceUp"`
	Matched bool   `json:"matched"`
}

// gameView is the board as the client renders it.
type gameView struct {
	GameID     string     `json:"gameId"`
	Difficulty string     `json:"difficulty"`
	Grid       string     `json:"grid"`
	Size       int        `json:"size"`
	Phase      string     `json:"phase"`
	Cards      []cardView `json:"cards"`
	Attempts   int        `json:"attempts"`
	ElapsedMs  int64      `json:"elapsedMs"`
	Running    bool       `json:"running"`
	Locked     bool       `json:"locked"`
	Outcome    string     `json:"outcome,omitempty"`
	Notice     string     `json:"notice,omitempty"`
}

// newGameView hides every card that is neither matched nor chosen.
func newGameView(s game.Snapshot) gameView {
	cards := make([]cardView, len(s.Deck))
	for i, c := range s.Deck {
		up := c.Matched || c.ID == s.Choice1 || c.ID == s.Choice2
		cv := cardView{ID: c.ID, FaceUp: up, Matched: c.Matched}
		if up {
			cv.Content = c.Content
		}
		cards[i] = cv
	}
	return gameView{
		GameID:     s.ID,
		Difficulty: string(s.Difficulty),
		Grid:       s.Difficulty.Label(),
		Size:       s.Difficulty.GridSize(),
		Phase:      string(s.Phase),
		Cards:      cards,
		Attempts:   s.Attempts,
		ElapsedMs:  s.ElapsedMs,
		Running:    s.Running,
		Locked:     s.Locked,
	}
}
