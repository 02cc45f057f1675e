package locate

import (
	"net/url"
	"strings"

	"datahunter/internal/domain"
)

// ChatID returns the conversation id of a chat URL, the path segment after
// "/c/", or "".
func ChatID(raw string) string {
	path := raw
	if u, err := url.Parse(raw); err == nil {
		path = u.Path
	}
	i := strings.LastIndex(path, "/c/")
	if i < 0 {
		return ""
	}
	id := path[i+len("/c/"):]
	if j := strings.IndexByte(id, '/'); j >= 0 {
		id = id[:j]
	}
	return id
}

// ChatBusy reports whether the assistant is still streaming its answer.
func ChatBusy(s *Snapshot, sels Selectors) bool {
	return s.Doc.Find(sels.Chat.Busy).Length() > 0
}

// LocateChat reads every turn of the conversation. found reports whether any
// turn element was observed, even one without id or role.
func LocateChat(s *Snapshot, sels Selectors) (rec domain.ChatRecord, found bool) {
	nodes := s.Doc.Find(sels.Chat.Turn)
	found = nodes.Length() > 0

	for i := range nodes.Nodes {
		n := nodes.Eq(i)
		role, _ := n.Attr(sels.Chat.RoleAttr)
		id, _ := n.Attr(sels.Chat.IDAttr)
		if role == "" || id == "" {
			continue
		}
		rec.Turns = append(rec.Turns, domain.Turn{ID: id, Role: role, Content: InnerText(n)})
	}

	rec.ID = ChatID(s.URL)
	rec.Title = s.Title
	return rec, found
}

// ChatPageInfo reports the identity of a chat page: its conversation id, the
// number of turn elements, the document title and whether an answer is still
// streaming.
func ChatPageInfo(s *Snapshot, sels Selectors) domain.PageInfo {
	return domain.PageInfo{
		ID:    ChatID(s.URL),
		Count: s.Doc.Find(sels.Chat.Turn).Length(),
		Title: s.Title,
		Busy:  ChatBusy(s, sels),
	}
}
