// Package domain contains the core domain types for the oracle context.
package domain

// Phrases are the canned answers, in display order.
var Phrases = [...]string{
	"It is certain.",
	"It is decidedly so.",
	"Without a doubt.",
	"Yes definitely.",
	"You may rely on it.",
	"As I see it, yes.",
	"Most likely.",
	"Outlook good.",
	"Yes.",
	"Signs point to yes.",
	"Reply hazy, try again.",
	"Ask again later.",
	"Better not tell you now.",
	"Cannot predict now.",
	"Concentrate and ask again.",
	"Don't count on it.",
	"My reply is no.",
	"My sources say no.",
	"Outlook not so good.",
	"Very doubtful.",
}

// PhraseCount is the size of the answer table.
const PhraseCount = len(Phrases)

// Pick maps a random source onto the table. intn must return a value in [0, n).
func Pick(intn func(n int) int) string {
	return Phrases[intn(PhraseCount)]
}

