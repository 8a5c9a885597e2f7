package progression

import "github.com/noah-isme/classquest-api/internal/models"

// Power is the class privilege and the team level that unlocks it.
type Power struct {
	Class         models.StudentClass `json:"class"`
	Description   string              `json:"description"`
	RequiredLevel int                 `json:"required_level"`
}

var powers = map[models.StudentClass]Power{
	models.ClassResearcher: {
		Class:         models.ClassResearcher,
		Description:   "Refazer 1 questão do Chefão após correção (vale metade)",
		RequiredLevel: 5,
	},
	models.ClassCommunicator: {
		Class:         models.ClassCommunicator,
		Description:   "Pedir 1 dica ao professor durante uma Missão",
		RequiredLevel: 3,
	},
	models.ClassEngineer: {
		Class:         models.ClassEngineer,
		Description:   "Entregar 1 Experiência com 1 dia de atraso sem perder XP",
		RequiredLevel: 4,
	},
}

// PowerFor looks up the power of a class.
func PowerFor(class models.StudentClass) (Power, bool) {
	p, ok := powers[class]
	return p, ok
}

// Powers lists the catalog ordered by unlock level.
func Powers() []Power {
	return []Power{
		powers[models.ClassCommunicator],
		powers[models.ClassEngineer],
		powers[models.ClassResearcher],
	}
}

// IsPowerUnlocked reports whether teamLevel reaches the level required by class.
// Unknown classes never unlock.
func IsPowerUnlocked(class models.StudentClass, teamLevel int) bool {
	p, ok := powers[class]
	if !ok {
		return false
	}
	return teamLevel >= p.RequiredLevel
}
