package store

// Stats summarizes the stores.
type Stats struct {
	Bots          int    `json:"bots"`
	Chats         int    `json:"chats"`
	Messages      int    `json:"messages"`
	DanglingChats int    `json:"dangling_chats"`
	Index         int    `json:"index"`
	Theme         string `json:"theme"`
}

// Stats counts bots, chats and messages, and the chats whose bot no longer
// exists.
func (s *Stores) Stats() *Stats {
	st := &Stats{
		Bots:  s.Bots.Len(),
		Index: s.Chats.Index(),
		Theme: string(s.Config.Get().Theme),
	}
	for _, c := range s.Chats.All() {
		st.Chats++
		st.Messages += len(c.History)
		if _, ok := s.Bots.GetOne(c.BotID); !ok {
			st.DanglingChats++
		}
	}
	return st
}
