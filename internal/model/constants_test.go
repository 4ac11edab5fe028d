package model

import "testing"

func TestMediaKindString(t *testing.T) {
	cases := []struct {
		kind MediaKind
		want string
	}{
		{KindImage, "image"},
		{KindVideo, "video"},
		{KindUnknown, "unknown"},
		{MediaKind(99), "unknown"},
	}
	for _, c := range cases {
		if got := c.kind.String(); got != c.want {
			t.Errorf("%d.String() = %q, want %q", c.kind, got, c.want)
		}
	}
}

func TestParseMediaKind(t *testing.T) {
	if ParseMediaKind("Image") != KindImage {
		t.Error("expected case-insensitive image")
	}
	if ParseMediaKind("video") != KindVideo {
		t.Error("expected video")
	}
	if ParseMediaKind("gif") != KindUnknown {
		t.Error("expected unknown for unrecognized kind")
	}
}

func TestRemoteFile_IsFolder(t *testing.T) {
	if !(RemoteFile{MimeType: DriveFolderMimeType}).IsFolder() {
		t.Error("folder mime type not detected")
	}
	if (RemoteFile{MimeType: "image/jpeg"}).IsFolder() {
		t.Error("regular file misdetected as folder")
	}
}

func TestRemoteFile_Extension(t *testing.T) {
	cases := []struct {
		name, want string
	}{
		{"Photo.JPG", ".jpg"},
		{"clip.mp4", ".mp4"},
		{"noext", ""},
	}
	for _, c := range cases {
		rf := RemoteFile{Name: c.name}
		if got := rf.Extension(); got != c.want {
			t.Errorf("Extension(%q) = %q, want %q", c.name, got, c.want)
		}
	}
}
