package reconcile

import (
	"testing"

	"datahunter/internal/domain"
)

func info(id string, count int, title string) domain.PageInfo {
	return domain.PageInfo{ID: id, Count: count, Title: title}
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name  string
		bound string
		held  domain.PageInfo
		last  domain.PageInfo
		page  domain.PageInfo
		want  Decision
	}{
		{
			name:  "bound widget on another subject unmounts",
			bound: "abc",
			held:  info("abc", 2, "A"),
			page:  info("def", 2, "A"),
			want:  Unmount,
		},
		{
			name: "held record for another subject",
			held: info("123", 0, ""),
			page: info("456", 0, ""),
			want: SubjectChanged,
		},
		{
			name: "count decreased",
			held: info("abc", 4, "A"),
			last: info("abc", 4, "A"),
			page: info("abc", 1, "A"),
			want: SubjectChanged,
		},
		{
			name: "content grows on the same subject",
			held: info("abc", 2, "A"),
			last: info("abc", 2, "A"),
			page: info("abc", 3, "A"),
			want: ReExtract,
		},
		{
			name: "title changed",
			held: info("abc", 2, "A"),
			last: info("abc", 2, "A"),
			page: info("abc", 2, "B"),
			want: ReExtract,
		},
		{
			name: "answer finished streaming",
			held: info("abc", 2, "A"),
			last: domain.PageInfo{ID: "abc", Count: 2, Title: "A", Busy: true},
			page: info("abc", 2, "A"),
			want: ReExtract,
		},
		{
			name: "answer started streaming",
			held: info("abc", 2, "A"),
			last: info("abc", 2, "A"),
			page: domain.PageInfo{ID: "abc", Count: 2, Title: "A", Busy: true},
			want: Keep,
		},
		{
			name: "nothing held yet and content appeared",
			page: info("abc", 1, "A"),
			want: ReExtract,
		},
		{
			name: "same page state as last decision",
			held: info("abc", 2, "A"),
			last: info("abc", 3, "A"),
			page: info("abc", 3, "A"),
			want: Keep,
		},
		{
			name: "held matches page",
			held: info("abc", 2, "A"),
			last: info("abc", 1, "A"),
			page: info("abc", 2, "A"),
			want: Keep,
		},
		{
			name:  "page without id does not unmount",
			bound: "abc",
			held:  info("abc", 2, "A"),
			last:  info("abc", 2, "A"),
			page:  info("", 2, "A"),
			want:  Keep,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.bound, tt.held, tt.last, tt.page)

			if got != tt.want {
				t.Errorf("Decide() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestReconciler_RepeatedNotificationsDecideOnce(t *testing.T) {
	// Arrange
	r := New("")
	held := info("abc", 1, "A")
	page := info("abc", 2, "A")

	// Act
	first := r.Observe(held, page)
	second := r.Observe(held, page)
	third := r.Observe(held, page)

	// Assert
	if first != ReExtract {
		t.Errorf("first = %s, want re_extract", first)
	}
	if second != Keep || third != Keep {
		t.Errorf("repeats = %s, %s, want keep", second, third)
	}
}

func TestReconciler_ShrinkThenRegrow(t *testing.T) {
	r := New("")
	held := info("abc", 3, "A")

	r.Observe(held, info("abc", 3, "A"))
	shrink := r.Observe(held, info("abc", 0, "A"))
	regrow := r.Observe(domain.PageInfo{}, info("abc", 2, "A"))

	if shrink != SubjectChanged {
		t.Errorf("shrink = %s, want subject_changed", shrink)
	}
	if regrow != ReExtract {
		t.Errorf("regrow = %s, want re_extract", regrow)
	}
}

func TestReconciler_Forget(t *testing.T) {
	r := New("")
	held := info("abc", 1, "A")
	page := info("abc", 2, "A")
	r.Observe(held, page)

	r.Forget()

	if got := r.Observe(held, page); got != ReExtract {
		t.Errorf("after Forget = %s, want re_extract", got)
	}
}
