package models

// Votable is implemented by content that carries a vote ledger and the
// denormalized rating and number_of_votes counters.
type Votable interface {
	TableName() string
	VoteTableName() string
	// VoteSubjectColumn is the vote table column referencing the content row.
	VoteSubjectColumn() string
	// Kind is a human readable name used in error messages.
	Kind() string
	// NewVote returns a pointer to a new vote row for this kind of content.
	NewVote(subjectID, userID, value int) any
}

var (
	_ Votable = Question{}
	_ Votable = Answer{}
)
