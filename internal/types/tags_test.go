package types

import "testing"

func TestTags_SetGet(t *testing.T) {
	tags := &Tags{}
	tags.Set(FieldTitle, "Test Song")
	tags.Set(FieldArtist, "Test Artist")

	if got, ok := tags.Get(FieldTitle); !ok || got != "Test Song" {
		t.Errorf("Get(title) = %q, %v, want %q, true", got, ok, "Test Song")
	}
	if got, ok := tags.Get(FieldArtist); !ok || got != "Test Artist" {
		t.Errorf("Get(artist) = %q, %v, want %q, true", got, ok, "Test Artist")
	}
	if _, ok := tags.Get(FieldAlbum); ok {
		t.Error("Get(album) on unset field should report absent")
	}
}

func TestTags_AbsentVsEmpty(t *testing.T) {
	tags := &Tags{}

	// Absent field
	if v, ok := tags.Get(FieldComment); ok || v != "" {
		t.Errorf("absent field: Get() = %q, %v, want \"\", false", v, ok)
	}

	// Present but empty field
	tags.Set(FieldComment, "")
	if v, ok := tags.Get(FieldComment); !ok || v != "" {
		t.Errorf("empty field: Get() = %q, %v, want \"\", true", v, ok)
	}

	// Cleared field is absent again
	tags.Clear(FieldComment)
	if _, ok := tags.Get(FieldComment); ok {
		t.Error("cleared field should report absent")
	}
}

func TestTags_Clear(t *testing.T) {
	tags := &Tags{}
	tags.Set(FieldGenre, "Rock")
	tags.Clear(FieldGenre)

	if tags.Genre != nil {
		t.Error("Clear() should nil out the backing pointer")
	}
	if !tags.IsZero() {
		t.Error("IsZero() should be true after clearing the only field")
	}
}

func TestTags_IsZero(t *testing.T) {
	tags := &Tags{}
	if !tags.IsZero() {
		t.Error("empty Tags should be zero")
	}

	tags.Set(FieldLyrics, "")
	if tags.IsZero() {
		t.Error("Tags with a present-but-empty field is not zero")
	}
}

func TestTags_Clone(t *testing.T) {
	original := &Tags{}
	original.Set(FieldTitle, "Test Title")
	original.Set(FieldYear, "2024")
	original.Set(FieldComment, "")

	clone := original.Clone()

	if !clone.Equal(original) {
		t.Fatal("clone should equal original")
	}

	// Modifying the clone must not affect the original
	clone.Set(FieldTitle, "Modified")
	clone.Clear(FieldComment)

	if got, _ := original.Get(FieldTitle); got != "Test Title" {
		t.Error("modifying clone.Title affected original")
	}
	if _, ok := original.Get(FieldComment); !ok {
		t.Error("clearing clone field affected original")
	}
}

func TestTags_Clone_Nil(t *testing.T) {
	var tags *Tags
	if clone := tags.Clone(); clone != nil {
		t.Error("Clone() of nil should return nil")
	}
}

func TestTags_Equal(t *testing.T) {
	withTitle := func(v string) *Tags {
		tags := &Tags{}
		tags.Set(FieldTitle, v)
		return tags
	}

	tests := []struct {
		name string
		a    *Tags
		b    *Tags
		want bool
	}{
		{
			name: "both nil",
			a:    nil,
			b:    nil,
			want: true,
		},
		{
			name: "one nil",
			a:    &Tags{},
			b:    nil,
			want: false,
		},
		{
			name: "equal empty",
			a:    &Tags{},
			b:    &Tags{},
			want: true,
		},
		{
			name: "equal with values",
			a:    withTitle("Test"),
			b:    withTitle("Test"),
			want: true,
		},
		{
			name: "different title",
			a:    withTitle("Test1"),
			b:    withTitle("Test2"),
			want: false,
		},
		{
			name: "absent vs empty",
			a:    &Tags{},
			b:    withTitle(""),
			want: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.a.Equal(tc.b)
			if got != tc.want {
				t.Errorf("Equal() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFields_Order(t *testing.T) {
	want := []Field{
		FieldTitle, FieldArtist, FieldAlbum, FieldYear,
		FieldTrack, FieldGenre, FieldComment, FieldLyrics,
	}

	got := Fields()
	if len(got) != len(want) {
		t.Fatalf("Fields() returned %d fields, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Fields()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParseField(t *testing.T) {
	tests := []struct {
		input  string
		want   Field
		wantOK bool
	}{
		{"title", FieldTitle, true},
		{"Artist", FieldArtist, true},
		{" ALBUM ", FieldAlbum, true},
		{"track", FieldTrack, true},
		{"lyrics", FieldLyrics, true},
		{"bogus", "", false},
		{"", "", false},
	}

	for _, tc := range tests {
		got, ok := ParseField(tc.input)
		if ok != tc.wantOK || got != tc.want {
			t.Errorf("ParseField(%q) = %q, %v, want %q, %v", tc.input, got, ok, tc.want, tc.wantOK)
		}
	}
}
