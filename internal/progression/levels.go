// Package progression holds the fixed level ladder and the class power catalog.
// Everything here is pure and safe for concurrent use.
package progression

// Level is one tier of the ladder.
type Level struct {
	Number    int    `json:"level"`
	Threshold int    `json:"xp_required"`
	Name      string `json:"name"`
	Bonus     string `json:"bonus"`
}

// Progress describes how far xp is between the current tier and the next one.
type Progress struct {
	Current Level   `json:"current"`
	Next    *Level  `json:"next,omitempty"`
	Percent float64 `json:"percent"`
}

var ladder = [...]Level{
	{Number: 1, Threshold: 0, Name: "Estagiários", Bonus: "Ponto de partida"},
	{Number: 2, Threshold: 80, Name: "Técnicos", Bonus: "Equipe escolhe nome do Laboratório"},
	{Number: 3, Threshold: 180, Name: "Analistas", Bonus: "Comunicadores liberam poder + Missão Bônus exclusiva"},
	{Number: 4, Threshold: 300, Name: "Cientistas", Bonus: "Engenheiros liberam poder + 1 dica coletiva no Chefão"},
	{Number: 5, Threshold: 450, Name: "Mestres", Bonus: "Pesquisadores liberam poder + Desafio Direto"},
	{Number: 6, Threshold: 650, Name: "Doutores", Bonus: "+0,5 na próxima prova para toda equipe"},
	{Number: 7, Threshold: 900, Name: "Gênios", Bonus: "+1,0 na prova final + Missão Secreta Bônus"},
}

// MaxLevel is the number of the top tier.
const MaxLevel = len(ladder)

// Levels returns a copy of the ladder, lowest tier first.
func Levels() []Level {
	out := make([]Level, len(ladder))
	copy(out[:], ladder[:])
	return out
}

// LevelFor returns the highest tier whose threshold is <= xp. Tier 1 is the floor.
func LevelFor(xp int) Level {
	for i := len(ladder) - 1; i >= 0; i-- {
		if xp >= ladder[i].Threshold {
			return ladder[i]
		}
	}
	return ladder[0]
}

// ProgressToNext interpolates xp between the current and next thresholds, clamped to [0,100].
func ProgressToNext(xp int) Progress {
	current := LevelFor(xp)
	if current.Number >= MaxLevel {
		return Progress{Current: current, Percent: 100}
	}
	next := ladder[current.Number]
	span := float64(next.Threshold - current.Threshold)
	percent := float64(xp-current.Threshold) / span * 100
	switch {
	case percent < 0:
		percent = 0
	case percent > 100:
		percent = 100
	}
	return Progress{Current: current, Next: &next, Percent: percent}
}
