// Media Metadata Surgery — CLI entry point
// Version: 0.1.2
//
// Usage:
//   surgery <command> [flags] <file|directory>
//
// Commands:
//   view     View all metadata for a file
//   edit     Add or update metadata fields
//   strip    Remove metadata from a file
//   tag      Fine-grained MP4/M4A iTunes atom editor (full ilst access)
//   info     Show format detection and capabilities for a file
//   formats  List all supported formats and their capabilities
//   batch    Run view/strip/edit on all files in a directory
//   version  Print version information
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	audpkg "github.com/ankit-chaubey/mp4meta/core/audio"
	vidpkg "github.com/ankit-chaubey/mp4meta/core/video"

	"github.com/ankit-chaubey/mp4meta/core"
	"github.com/ankit-chaubey/mp4meta/mp4tag"
)

const Version = "0.1.2"

// ──────────────────────────────────────────────────────────────────────────────
// kvFlags — multi-value flag for --set KEY=VALUE and --delete KEY
// ──────────────────────────────────────────────────────────────────────────────

type kvFlags []string

func (k *kvFlags) String() string  { return strings.Join(*k, ", ") }
func (k *kvFlags) Set(v string) error { *k = append(*k, v); return nil }

// ──────────────────────────────────────────────────────────────────────────────
// main
// ──────────────────────────────────────────────────────────────────────────────

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "edit":
		runEdit(args)
	case "strip":
		runStrip(args)
	case "tag":
		runTag(args)
	case "info":
		runInfo(args)
	case "formats":
		runFormats(args)
	case "batch":
		runBatch(args)
	case "version", "--version", "-v":
		fmt.Printf("Media Metadata Surgery v%s\n", Version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`Media Metadata Surgery v%s

USAGE
  surgery <command> [flags] <file>

COMMANDS
  view      View all metadata embedded in a file
  edit      Add or update metadata fields in a file
  strip     Remove metadata from a file
  tag       Fine-grained MP4/M4A iTunes atom editor (full ilst access)
  info      Show format detection and capabilities for a file
  formats   List all supported formats and their capabilities
  batch     Run view/strip/edit on all files in a directory
  version   Print version information

QUICK EXAMPLES
  surgery view song.m4a
  surgery view --json movie.mp4
  surgery edit --set "Artist=John Doe" --set "Title=My Song" audio.mp3
  surgery tag song.m4a alb="Greatest Hits"
  surgery strip song.m4a
  surgery strip --out clean.m4a --keep Title song.m4a
  surgery info video.mp4
  surgery formats --type video
  surgery batch view ./music
  surgery batch strip --out ./clean ./music

Run 'surgery <command> --help' for command-specific help.
`, Version)
}

// ──────────────────────────────────────────────────────────────────────────────
// view
// ──────────────────────────────────────────────────────────────────────────────

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	jsonOut := fs.Bool("json", false, "Output metadata as JSON")
	verbose := fs.Bool("verbose", false, "Include raw/low-level fields")
	fs.Usage = func() {
		fmt.Println("Usage: surgery view [--json] [--verbose] <file>")
		fmt.Println()
		fmt.Println("View all metadata embedded in a file.")
		fmt.Println()
		fmt.Println("Flags:")
		fs.PrintDefaults()
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  surgery view song.m4a")
		fmt.Println("  surgery view --json audio.mp3")
		fmt.Println("  surgery view --verbose movie.mp4")
	}
	fs.Parse(args)

	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(1)
	}

	path := fs.Arg(0)
	p := core.NewPrinter(*jsonOut, *verbose)

	m, err := viewFile(path)
	if err != nil {
		core.PrintError(err.Error())
		os.Exit(1)
	}
	p.PrintMetadata(m)
}

// ──────────────────────────────────────────────────────────────────────────────
// edit
// ──────────────────────────────────────────────────────────────────────────────

func runEdit(args []string) {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	var setFlags kvFlags
	var delFlags kvFlags
	outPath := fs.String("out", "", "Output file path (default: edit in-place)")
	dryRun := fs.Bool("dry-run", false, "Preview changes without writing to disk")
	fs.Var(&setFlags, "set", "Set a metadata field:  KEY=VALUE  (repeatable)")
	fs.Var(&delFlags, "delete", "Delete a metadata field by key (repeatable)")
	fs.Usage = func() {
		fmt.Println("Usage: surgery edit [flags] <file>")
		fmt.Println()
		fmt.Println("Add, update, or delete metadata fields in a file.")
		fmt.Println()
		fmt.Println("Flags:")
		fs.PrintDefaults()
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println(`  surgery edit --set "Artist=John Doe" --set "Title=My Song" audio.mp3`)
		fmt.Println(`  surgery edit --set "Title=Test" --out out.m4a song.m4a`)
		fmt.Println(`  surgery edit --dry-run --set "Title=Test" video.mp4`)
		fmt.Println()
		fmt.Println("Editable fields by format:")
		fmt.Println("  MP3       : Title, Artist, Album, Year, Genre, Comment,")
		fmt.Println("              TrackNumber, AlbumArtist, Composer, Lyrics, Copyright")
		fmt.Println("  FLAC      : TITLE, ARTIST, ALBUM, DATE, GENRE, COMMENT,")
		fmt.Println("              TRACKNUMBER, ALBUMARTIST, COMPOSER, COPYRIGHT")
		fmt.Println("  MP4/M4A   : title, artist, album, comment, year, genre,")
		fmt.Println("              description, copyright (use the 'tag' command for")
		fmt.Println("              the full iTunes atom set, covers, and custom tags)")
	}
	fs.Parse(args)

	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(1)
	}
	if len(setFlags) == 0 && len(delFlags) == 0 {
		fmt.Fprintln(os.Stderr, "Error: provide at least one --set or --delete flag")
		fmt.Fprintln(os.Stderr, "Run 'surgery edit --help' for usage.")
		os.Exit(1)
	}

	path := fs.Arg(0)

	setMap := map[string]string{}
	for _, kv := range setFlags {
		k, v, ok := core.ParseKV(kv)
		if !ok {
			core.PrintError(fmt.Sprintf("invalid --set value %q — expected KEY=VALUE", kv))
			os.Exit(1)
		}
		setMap[k] = v
	}

	opts := core.EditOptions{
		Set:    setMap,
		Delete: []string(delFlags),
		DryRun: *dryRun,
	}

	h, err := getHandler(path)
	if err != nil {
		core.PrintError(err.Error())
		os.Exit(1)
	}

	info := h.Info()
	if !info.CanEdit {
		core.PrintError(fmt.Sprintf(
			"%s does not support metadata editing in v%s\n"+
				"Formats that support editing: MP3, FLAC, MP4, M4A",
			info.Name, Version))
		os.Exit(1)
	}

	if err := h.Edit(path, *outPath, opts); err != nil {
		core.PrintError(err.Error())
		os.Exit(1)
	}

	if !*dryRun {
		out := core.ResolveOutPath(path, *outPath)
		if out == path {
			fmt.Printf("✓ Metadata updated in-place: %s\n", path)
		} else {
			fmt.Printf("✓ Metadata updated → %s\n", out)
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// strip
// ──────────────────────────────────────────────────────────────────────────────

func runStrip(args []string) {
	fs := flag.NewFlagSet("strip", flag.ExitOnError)
	outPath := fs.String("out", "", "Output file path (default: strip in-place)")
	dryRun := fs.Bool("dry-run", false, "Preview without writing to disk")
	gpsOnly := fs.Bool("gps-only", false, "Remove only GPS location fields (keep rest)")
	var keepFlags kvFlags
	fs.Var(&keepFlags, "keep", "Keep a metadata field by key (repeatable), e.g. Title or ©nam")
	fs.Usage = func() {
		fmt.Println("Usage: surgery strip [flags] <file>")
		fmt.Println()
		fmt.Println("Remove metadata from a file. Default: remove all metadata.")
		fmt.Println()
		fmt.Println("Flags:")
		fs.PrintDefaults()
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  surgery strip song.m4a")
		fmt.Println("  surgery strip --out clean.mp4 movie.mp4")
		fmt.Println("  surgery strip --keep ©nam --keep ©ART song.m4a  # drop everything but title/artist")
		fmt.Println("  surgery strip --dry-run audio.mp3")
		fmt.Println()
		fmt.Println("Formats that support strip: MP3, FLAC, WAV, MP4, MOV, M4A")
	}
	fs.Parse(args)

	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(1)
	}

	path := fs.Arg(0)

	opts := core.StripOptions{
		KeepFields: []string(keepFlags),
		StripGPS:   *gpsOnly,
		StripAll:   len(keepFlags) == 0 && !*gpsOnly,
		DryRun:     *dryRun,
	}

	h, err := getHandler(path)
	if err != nil {
		core.PrintError(err.Error())
		os.Exit(1)
	}

	info := h.Info()
	if !info.CanStrip {
		core.PrintError(fmt.Sprintf(
			"%s does not support metadata stripping in v%s", info.Name, Version))
		os.Exit(1)
	}

	if err := h.Strip(path, *outPath, opts); err != nil {
		core.PrintError(err.Error())
		os.Exit(1)
	}

	if !*dryRun {
		out := core.ResolveOutPath(path, *outPath)
		if out == path {
			fmt.Printf("✓ Metadata stripped from: %s\n", path)
		} else {
			fmt.Printf("✓ Stripped → %s\n", out)
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// info
// ──────────────────────────────────────────────────────────────────────────────

func runInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	jsonOut := fs.Bool("json", false, "Output as JSON")
	fs.Usage = func() {
		fmt.Println("Usage: surgery info [--json] <file>")
		fmt.Println()
		fmt.Println("Show format detection result and capabilities for a file.")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  surgery info video.mp4")
		fmt.Println("  surgery info --json audio.mp3")
	}
	fs.Parse(args)

	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(1)
	}

	path := fs.Arg(0)
	fmtID, err := core.DetectFormat(path)
	if err != nil {
		core.PrintError(err.Error())
		os.Exit(1)
	}

	h, err := getHandler(path)
	if err != nil {
		core.PrintError(err.Error())
		os.Exit(1)
	}

	info := h.Info()

	if *jsonOut {
		fmt.Printf("{\n")
		fmt.Printf("  \"file\": %q,\n", path)
		fmt.Printf("  \"format_id\": %q,\n", fmtID)
		fmt.Printf("  \"name\": %q,\n", info.Name)
		fmt.Printf("  \"media_type\": %q,\n", info.MediaType)
		fmt.Printf("  \"extensions\": %q,\n", strings.Join(info.Extensions, ", "))
		fmt.Printf("  \"mime_types\": %q,\n", strings.Join(info.MIMETypes, ", "))
		fmt.Printf("  \"can_view\": %v,\n", info.CanView)
		fmt.Printf("  \"can_edit\": %v,\n", info.CanEdit)
		fmt.Printf("  \"can_strip\": %v,\n", info.CanStrip)
		fmt.Printf("  \"editable_fields\": %q,\n", strings.Join(info.EditableFields, ", "))
		fmt.Printf("  \"notes\": %q\n", info.Notes)
		fmt.Printf("}\n")
	} else {
		fmt.Printf("File            : %s\n", path)
		fmt.Printf("Detected Format : %s  (id: %s)\n", info.Name, fmtID)
		fmt.Printf("Media Type      : %s\n", info.MediaType)
		fmt.Printf("Extensions      : %s\n", strings.Join(info.Extensions, ", "))
		fmt.Printf("MIME Types      : %s\n", strings.Join(info.MIMETypes, ", "))
		fmt.Printf("Can View        : %v\n", info.CanView)
		fmt.Printf("Can Edit        : %v\n", info.CanEdit)
		fmt.Printf("Can Strip       : %v\n", info.CanStrip)
		if len(info.EditableFields) > 0 {
			fmt.Printf("Editable Fields : %s\n", strings.Join(info.EditableFields, ", "))
		}
		if info.Notes != "" {
			fmt.Printf("Notes           : %s\n", info.Notes)
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// formats
// ──────────────────────────────────────────────────────────────────────────────

type namedFormatInfo struct {
	id core.FormatID
	core.FormatInfo
}

func runFormats(args []string) {
	fs := flag.NewFlagSet("formats", flag.ExitOnError)
	mediaType := fs.String("type", "", "Filter by media type: image|audio|video|document")
	fs.Usage = func() {
		fmt.Println("Usage: surgery formats [--type image|audio|video|document]")
		fmt.Println()
		fmt.Println("List all supported formats and their capabilities.")
	}
	fs.Parse(args)

	all := getAllFormatInfos()

	fmt.Printf("\n%-12s %-22s %-10s  %-5s %-5s %-5s  %s\n",
		"Format ID", "Name", "Type", "View", "Edit", "Strip", "Extensions")
	fmt.Println(strings.Repeat("─", 82))

	viewCount, editCount, stripCount := 0, 0, 0
	total := 0

	for _, f := range all {
		if *mediaType != "" && f.MediaType != *mediaType {
			continue
		}
		total++
		v := tick(f.CanView)
		e := tick(f.CanEdit)
		s := tick(f.CanStrip)
		if f.CanView { viewCount++ }
		if f.CanEdit { editCount++ }
		if f.CanStrip { stripCount++ }
		fmt.Printf("%-12s %-22s %-10s  %-5s %-5s %-5s  %s\n",
			string(f.id), f.Name, f.MediaType, v, e, s,
			strings.Join(f.Extensions, " "))
	}

	fmt.Println(strings.Repeat("─", 82))
	fmt.Printf("%-12s %-22s %-10s  %-5d %-5d %-5d  (%d formats total)\n",
		"", "TOTAL", "", viewCount, editCount, stripCount, total)
	fmt.Println()
}

func tick(b bool) string {
	if b {
		return "✓"
	}
	return "—"
}

func getAllFormatInfos() []namedFormatInfo {
	var all []namedFormatInfo
	// Audio
	for _, id := range []core.FormatID{
		core.FmtMP3, core.FmtFLAC, core.FmtOGG, core.FmtOpus,
		core.FmtM4A, core.FmtWAV, core.FmtAIFF,
	} {
		h := audpkg.New(id)
		all = append(all, namedFormatInfo{id: id, FormatInfo: h.Info()})
	}
	// Video
	for _, id := range []core.FormatID{
		core.FmtMP4, core.FmtMOV, core.FmtMKV, core.FmtWebM,
		core.FmtAVI, core.FmtWMV, core.FmtFLV,
	} {
		h := vidpkg.New(id)
		all = append(all, namedFormatInfo{id: id, FormatInfo: h.Info()})
	}
	return all
}

// ──────────────────────────────────────────────────────────────────────────────
// batch
// ──────────────────────────────────────────────────────────────────────────────

func runBatch(args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: surgery batch <view|strip|edit> [flags] <directory>")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  surgery batch view ./photos")
		fmt.Println("  surgery batch view --json ./music")
		fmt.Println("  surgery batch strip --out ./clean ./photos")
		fmt.Println("  surgery batch strip --recursive ./media")
		fmt.Println(`  surgery batch edit --set "Copyright=ACME Corp" ./docs`)
		os.Exit(1)
	}

	subcmd := args[0]
	subargs := args[1:]

	switch subcmd {
	case "view":
		runBatchView(subargs)
	case "strip":
		runBatchStrip(subargs)
	case "edit":
		runBatchEdit(subargs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown batch sub-command: %s\n", subcmd)
		fmt.Println("Valid sub-commands: view, strip, edit")
		os.Exit(1)
	}
}

func runBatchView(args []string) {
	fs := flag.NewFlagSet("batch view", flag.ExitOnError)
	jsonOut := fs.Bool("json", false, "Output as JSON")
	recursive := fs.Bool("recursive", false, "Recurse into subdirectories")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Println("Usage: surgery batch view [--json] [--recursive] <directory>")
		os.Exit(1)
	}

	dir := fs.Arg(0)
	p := core.NewPrinter(*jsonOut, false)
	files := collectFiles(dir, *recursive)
	errs := 0

	for _, f := range files {
		m, err := viewFile(f)
		if err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: %s\n", f, err)
			errs++
			continue
		}
		if !*jsonOut {
			fmt.Println(strings.Repeat("═", 60))
		}
		p.PrintMetadata(m)
	}

	if !*jsonOut {
		fmt.Printf("\nProcessed %d files", len(files))
		if errs > 0 {
			fmt.Printf(", %d errors", errs)
		}
		fmt.Println()
	}
}

func runBatchStrip(args []string) {
	fs := flag.NewFlagSet("batch strip", flag.ExitOnError)
	outDir := fs.String("out", "", "Output directory (default: in-place)")
	dryRun := fs.Bool("dry-run", false, "Preview without writing")
	recursive := fs.Bool("recursive", false, "Recurse into subdirectories")
	var keepFlags kvFlags
	fs.Var(&keepFlags, "keep", "Keep a metadata section (repeatable)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Println("Usage: surgery batch strip [--out <dir>] [--recursive] [--dry-run] <directory>")
		os.Exit(1)
	}

	dir := fs.Arg(0)
	files := collectFiles(dir, *recursive)
	opts := core.StripOptions{
		KeepFields: []string(keepFlags),
		StripAll:   len(keepFlags) == 0,
	}

	ok, errs, skipped := 0, 0, 0
	for _, f := range files {
		outPath := ""
		if *outDir != "" {
			rel, _ := filepath.Rel(dir, f)
			outPath = filepath.Join(*outDir, rel)
			os.MkdirAll(filepath.Dir(outPath), 0755)
		}

		h, err := getHandler(f)
		if err != nil || !h.Info().CanStrip {
			skipped++
			continue
		}

		if *dryRun {
			fmt.Printf("[dry-run] would strip: %s\n", f)
			continue
		}

		if err := h.Strip(f, outPath, opts); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: %s\n", f, err)
			errs++
		} else {
			fmt.Printf("✓ %s\n", f)
			ok++
		}
	}
	if !*dryRun {
		fmt.Printf("\nStripped: %d  |  Errors: %d  |  Skipped (unsupported): %d\n", ok, errs, skipped)
	}
}

func runBatchEdit(args []string) {
	fs := flag.NewFlagSet("batch edit", flag.ExitOnError)
	var setFlags kvFlags
	outDir := fs.String("out", "", "Output directory (default: in-place)")
	dryRun := fs.Bool("dry-run", false, "Preview without writing")
	recursive := fs.Bool("recursive", false, "Recurse into subdirectories")
	fs.Var(&setFlags, "set", "Set KEY=VALUE (repeatable)")
	fs.Parse(args)

	if fs.NArg() < 1 || len(setFlags) == 0 {
		fmt.Println("Usage: surgery batch edit --set KEY=VALUE [--recursive] [--out <dir>] <directory>")
		os.Exit(1)
	}

	dir := fs.Arg(0)
	setMap := map[string]string{}
	for _, kv := range setFlags {
		k, v, ok := core.ParseKV(kv)
		if !ok {
			continue
		}
		setMap[k] = v
	}

	opts := core.EditOptions{Set: setMap, DryRun: *dryRun}
	files := collectFiles(dir, *recursive)
	ok, errs, skipped := 0, 0, 0

	for _, f := range files {
		outPath := ""
		if *outDir != "" {
			rel, _ := filepath.Rel(dir, f)
			outPath = filepath.Join(*outDir, rel)
			os.MkdirAll(filepath.Dir(outPath), 0755)
		}

		h, err := getHandler(f)
		if err != nil || !h.Info().CanEdit {
			skipped++
			continue
		}

		if *dryRun {
			fmt.Printf("[dry-run] would edit: %s\n", f)
			continue
		}

		if err := h.Edit(f, outPath, opts); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: %s\n", f, err)
			errs++
		} else {
			fmt.Printf("✓ %s\n", f)
			ok++
		}
	}
	if !*dryRun {
		fmt.Printf("\nEdited: %d  |  Errors: %d  |  Skipped (unsupported): %d\n", ok, errs, skipped)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Core helpers
// ──────────────────────────────────────────────────────────────────────────────

// getHandler returns the appropriate Handler for the given file path.
func getHandler(path string) (core.Handler, error) {
	fmtID, err := core.DetectFormat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot detect format of %s: %w", path, err)
	}
	if fmtID == core.FmtUnknown {
		return nil, fmt.Errorf("unknown or unsupported format: %s", path)
	}

	switch core.MediaTypeFor(fmtID) {
	case "audio":
		return audpkg.New(fmtID), nil
	case "video":
		return vidpkg.New(fmtID), nil
	default:
		return nil, fmt.Errorf("no handler for format: %s (image/document formats are out of scope for this build)", fmtID)
	}
}

// viewFile is a convenience wrapper.
func viewFile(path string) (*core.Metadata, error) {
	h, err := getHandler(path)
	if err != nil {
		return nil, err
	}
	return h.View(path)
}

// collectFiles gathers all regular files under dir.
// If recursive is true, subdirectories are descended into.
func collectFiles(dir string, recursive bool) []string {
	var files []string
	entries, err := os.ReadDir(dir)
	if err != nil {
		core.PrintError(fmt.Sprintf("cannot read directory %q: %s", dir, err))
		return nil
	}
	for _, e := range entries {
		full := filepath.Join(dir, e.Name())
		if e.IsDir() {
			if recursive {
				files = append(files, collectFiles(full, true)...)
			}
			continue
		}
		// Only include files with recognised extensions
		if _, err := core.DetectFormat(full); err == nil {
			fid, _ := core.DetectFormat(full)
			if fid != core.FmtUnknown {
				files = append(files, full)
			}
		}
	}
	return files
}

// ──────────────────────────────────────────────────────────────────────────────
// tag — direct access to every MP4/M4A iTunes atom mp4tag knows about,
// including covers, custom "----" atoms, and dataidx'd multi-value tags.
// Positional arguments after the file are tag specs:
//
//	name=value   set (or add) a string tag
//	name=        delete a tag
//	name         display a single tag
//
// With no tag specs, every tag is displayed.
// ──────────────────────────────────────────────────────────────────────────────

func runTag(args []string) {
	fs := flag.NewFlagSet("tag", flag.ExitOnError)
	binary := fs.Bool("binary", false, "Treat every name=value as a binary payload")
	testBin := fs.String("testbin", "", "Read binary data for every tag spec from this file")
	clean := fs.Bool("clean", false, "Remove every tag (after --copyfrom, before the tag specs are applied)")
	display := fs.Bool("display", false, "Display every tag after applying changes")
	dump := fs.String("dump", "", "Write the display output to this file instead of stdout")
	copyFrom := fs.String("copyfrom", "", "Copy all tags from this file onto <file>")
	copyTo := fs.String("copyto", "", "Copy all tags from <file> onto this file")
	backup := fs.Bool("backup", false, "Keep the original file as <file>.bak")
	duration := fs.Bool("duration", false, "Print the track duration in milliseconds")
	debug := fs.Int("debug", 0, "mp4tag debug flag bitmask")
	jsonOut := fs.Bool("json", false, "Display output as JSON")
	fs.Usage = func() {
		fmt.Println("Usage: surgery tag [flags] <file> [name=value|name=|name ...]")
		fmt.Println()
		fmt.Println("Fine-grained MP4/M4A iTunes atom editor.")
		fmt.Println()
		fmt.Println("Flags:")
		fs.PrintDefaults()
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println(`  surgery tag song.m4a`)
		fmt.Println(`  surgery tag song.m4a aART="Various Artists" gnre=`)
		fmt.Println(`  surgery tag --testbin cover.jpg song.m4a covr`)
		fmt.Println(`  surgery tag --copyfrom template.m4a song.m4a`)
		fmt.Println(`  surgery tag --duration song.m4a`)
	}
	fs.Parse(args)

	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(1)
	}

	path := fs.Arg(0)
	specs := fs.Args()[1:]

	h, err := mp4tag.Open(path)
	if err != nil {
		core.PrintError(err.Error())
		os.Exit(1)
	}
	defer h.Close()

	h.SetOptions(mp4tag.Options{DebugFlags: *debug, KeepBackup: *backup})

	if err := h.Parse(); err != nil {
		core.PrintError(err.Error())
		os.Exit(1)
	}

	changed := false

	if *copyFrom != "" {
		src, err := mp4tag.Open(*copyFrom)
		if err != nil {
			core.PrintError(err.Error())
			os.Exit(1)
		}
		if err := src.Parse(); err != nil {
			core.PrintError(err.Error())
			src.Close()
			os.Exit(1)
		}
		snap := src.Preserve()
		src.Close()
		if err := h.Restore(snap); err != nil {
			core.PrintError(err.Error())
			os.Exit(1)
		}
		changed = true
	}

	if *clean {
		if err := h.CleanTags(); err != nil {
			core.PrintError(err.Error())
			os.Exit(1)
		}
		changed = true
	}

	for _, spec := range specs {
		name, value, hasEq := strings.Cut(spec, "=")
		name = tagNameFor(name)
		switch {
		case *testBin != "":
			data, err := os.ReadFile(*testBin)
			if err != nil {
				core.PrintError(err.Error())
				os.Exit(1)
			}
			if err := h.SetBinaryTag(name, data, *testBin); err != nil {
				core.PrintError(fmt.Sprintf("set %s: %s", name, err))
				continue
			}
			changed = true
		case !hasEq:
			pt, err := h.GetTag(name)
			if err != nil {
				core.PrintError(fmt.Sprintf("%s: %s", name, err))
				continue
			}
			printTagLine(os.Stdout, pt)
		case value == "":
			if err := h.DeleteTag(name); err != nil {
				core.PrintError(fmt.Sprintf("delete %s: %s", name, err))
				continue
			}
			changed = true
		default:
			if err := h.SetTag(name, value, *binary); err != nil {
				core.PrintError(fmt.Sprintf("set %s: %s", name, err))
				continue
			}
			changed = true
		}
	}

	if *copyTo != "" {
		dst, err := mp4tag.Open(*copyTo)
		if err != nil {
			core.PrintError(err.Error())
			os.Exit(1)
		}
		if err := dst.Parse(); err != nil {
			core.PrintError(err.Error())
			dst.Close()
			os.Exit(1)
		}
		if err := dst.Restore(h.Preserve()); err != nil {
			core.PrintError(err.Error())
			dst.Close()
			os.Exit(1)
		}
		if err := dst.Write(); err != nil {
			core.PrintError(err.Error())
		}
		dst.Close()
	}

	if *duration {
		fmt.Printf("%d\n", h.Duration())
	}

	out := os.Stdout
	if *dump != "" {
		f, err := os.Create(*dump)
		if err != nil {
			core.PrintError(err.Error())
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}
	if *display || len(specs) == 0 {
		dumpTags(h, out, *jsonOut)
	}

	if changed {
		if err := h.Write(); err != nil {
			core.PrintError(err.Error())
			os.Exit(1)
		}
		fmt.Printf("✓ Tags updated: %s\n", path)
	}
}

// tagNameFor normalises a command-line tag spec's name the way the
// reference CLI does: "art" is a friendly alias for ©ART and "aart" for
// aART, and a bare 3-character name with no ':' in it is assumed to want
// the copyright-character-prefixed family (©nam, ©ART, ...). Names that
// contain ':' or start with "----" are returned unchanged.
func tagNameFor(name string) string {
	switch strings.ToLower(name) {
	case "art":
		return "\xa9ART"
	case "aart":
		return "aART"
	}
	if strings.HasPrefix(name, "©") && len(name) == len("©")+3 {
		name = "\xa9" + name[len("©"):]
	}
	if strings.HasPrefix(name, "----") || strings.Contains(name, ":") {
		return name
	}
	if len(name) == 3 {
		return "\xa9" + name
	}
	return name
}

func printTagLine(out *os.File, pt mp4tag.PublicTag) {
	val := pt.Data
	if pt.Binary {
		val = fmt.Sprintf("<binary, %d bytes>", len(pt.Data))
	}
	name := pt.Name
	if alias, ok := mp4tag.FriendlyName(pt.Name); ok {
		name = alias
	}
	if pt.DataIndex > 0 {
		fmt.Fprintf(out, "%s:%d = %s\n", name, pt.DataIndex, val)
	} else {
		fmt.Fprintf(out, "%s = %s\n", name, val)
	}
}

func dumpTags(h *mp4tag.Handle, out *os.File, jsonOut bool) {
	if jsonOut {
		fmt.Fprintln(out, "[")
		it := h.Iterate()
		first := true
		for {
			pt, ok := it.Next()
			if !ok {
				break
			}
			if !first {
				fmt.Fprintln(out, ",")
			}
			first = false
			val := pt.Data
			if pt.Binary {
				val = fmt.Sprintf("<binary, %d bytes>", len(pt.Data))
			}
			fmt.Fprintf(out, `  {"name": %q, "value": %q, "dataidx": %d}`, pt.Name, val, pt.DataIndex)
		}
		fmt.Fprintln(out, "\n]")
		return
	}
	it := h.Iterate()
	for {
		pt, ok := it.Next()
		if !ok {
			break
		}
		printTagLine(out, pt)
	}
}
