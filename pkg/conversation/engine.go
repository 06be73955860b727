package conversation

// InitConversation starts a new dialogue: the seed messages first, then the
// user query. Seeds are only ever placed here, never appended later.
//
// The user message is always appended, even when query is empty, so a seeded
// conversation is ready to be answered. Callers must not call this with both
// an empty query and no seeds.
func InitConversation(query string, seeds ...Message) Conversation {
	ret := make(Conversation, 0, len(seeds)+1)
	ret = append(ret, seeds...)
	return append(ret, NewChatMessage(RoleUser, query))
}

// ContinueConversation appends the query as a user message. An empty query
// returns conv as is; the caller decides whether anything needs to happen.
// The input slice is never written to.
func ContinueConversation(conv Conversation, query string) Conversation {
	if query == "" {
		return conv
	}
	ret := make(Conversation, 0, len(conv)+1)
	ret = append(ret, conv...)
	return append(ret, NewChatMessage(RoleUser, query))
}

// NeedsReply reports whether the last message is a user message waiting for
// an answer.
func NeedsReply(conv Conversation) bool {
	last, ok := conv.Last()
	return ok && last.Role == RoleUser
}
