// Package metanote reads and edits descriptive metadata in audio files.
//
// metanote normalizes the tag containers of FLAC, MP3, M4A, OGG, OPUS and
// WAV files into one canonical field model (title, artist, album, year,
// track, genre, comment, lyrics, plus an embedded front cover), applies
// edits back without touching the audio stream or foreign tags, and builds
// on that core with batch editing, template-driven renaming, and tabular
// export.
//
// # Quick Start
//
// Reading metadata from an audio file:
//
//	file, err := metanote.Open("song.flac")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer file.Close()
//
//	if title, ok := file.Tags.Get(metanote.FieldTitle); ok {
//		fmt.Println("Title:", title)
//	}
//	fmt.Println(file.Audio) // "FLAC 44.1kHz 16-bit stereo lossless"
//
// Editing is a mutate-then-save cycle. Save rewrites the tag region through
// a temporary file and an atomic rename; the original is never left half
// written:
//
//	file.Tags.Set(metanote.FieldArtist, "The Headlights")
//	file.Tags.Clear(metanote.FieldComment)
//	if err := file.Save(); err != nil {
//		log.Fatal(err)
//	}
//
// # Supported Formats
//
//   - FLAC: Vorbis comments and PICTURE blocks
//   - MP3: ID3v2.3 and ID3v2.4 frames
//   - M4A/M4B: iTunes-style ilst atoms
//   - OGG/OPUS: Vorbis comment headers inside the Ogg page stream
//   - WAV: technical info only; WAV has no standard tag container, so all
//     fields read as absent and Save is a byte-identical no-op
//
// Format detection looks at magic bytes, never the file extension. Tags a
// format stores beyond the canonical fields (MusicBrainz IDs, ReplayGain,
// custom frames) are preserved verbatim across a read-modify-write cycle.
//
// # Batch Editing
//
// A Delta is a sparse set of edits applied uniformly to many files, each
// file saved independently with its own outcome:
//
//	delta := metanote.NewDelta(
//		metanote.SetField(metanote.FieldAlbum, "Motorway"),
//		metanote.ClearField(metanote.FieldComment),
//	)
//	result, err := metanote.ApplyDelta(ctx, files, delta)
//	if err != nil {
//		log.Fatal(err) // the delta itself was invalid; no file was touched
//	}
//	for _, failure := range result.Failures() {
//		log.Printf("%s: %v", failure.Path, failure.Err)
//	}
//
// # Renaming and Export
//
// PlanRename derives target filenames from a "{field}" template, sanitizes
// them, and detects collisions before anything moves:
//
//	plan, err := metanote.PlanRename(files, "{artist} - {title}")
//	if err != nil {
//		log.Fatal(err) // collision or bad template; nothing was renamed
//	}
//	result := plan.Execute(ctx)
//
// Project flattens records into ordered rows for CSV export; Columns
// returns the matching header. Quoting is left to encoding/csv.
//
// # Error Handling
//
// Fatal problems return typed errors (NotFoundError, CorruptedFileError,
// UnsupportedFormatError, StaleReadError, CollisionError, ...) matched
// with errors.As. Non-fatal parse issues never abort a read; they
// accumulate in File.Warnings:
//
//	for _, w := range file.Warnings {
//		log.Printf("warning: %s", w)
//	}
package metanote
