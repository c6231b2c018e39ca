// Package video handles metadata for all video formats:
// MP4, MOV, M4V, MKV, WebM, AVI, WMV, FLV
package video

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ankit-chaubey/mp4meta/core"
	"github.com/ankit-chaubey/mp4meta/mp4tag"
)

// Handler implements core.Handler for video formats.
type Handler struct {
	format core.FormatID
}

// New returns a video Handler for the given format.
func New(fmt core.FormatID) *Handler { return &Handler{format: fmt} }

func (h *Handler) Info() core.FormatInfo {
	return formatInfo[h.format]
}

var formatInfo = map[core.FormatID]core.FormatInfo{
	core.FmtMP4: {
		Name:        "MP4",
		Extensions:  []string{".mp4", ".m4v"},
		MediaType:   "video",
		MIMETypes:   []string{"video/mp4"},
		CanView:     true,
		CanEdit:     true,
		CanStrip:    true,
		Notes:       "ISO Base Media File Format atoms. Reads and strips udta/©/meta atoms.",
		EditableFields: []string{
			"title", "artist", "album", "comment", "year",
			"genre", "description", "copyright",
		},
	},
	core.FmtMOV: {
		Name:        "QuickTime MOV",
		Extensions:  []string{".mov", ".qt"},
		MediaType:   "video",
		MIMETypes:   []string{"video/quicktime"},
		CanView:     true,
		CanEdit:     false,
		CanStrip:    true,
		Notes:       "QuickTime atoms. Strip clears the iTunes ilst tags.",
	},
	core.FmtMKV: {
		Name:        "Matroska MKV",
		Extensions:  []string{".mkv"},
		MediaType:   "video",
		MIMETypes:   []string{"video/x-matroska"},
		CanView:     true,
		CanEdit:     false,
		CanStrip:    false,
		Notes:       "EBML-based container. View only in v0.1.2.",
	},
	core.FmtWebM: {
		Name:        "WebM",
		Extensions:  []string{".webm"},
		MediaType:   "video",
		MIMETypes:   []string{"video/webm"},
		CanView:     true,
		CanEdit:     false,
		CanStrip:    false,
		Notes:       "EBML-based container. View only in v0.1.2.",
	},
	core.FmtAVI: {
		Name:        "AVI",
		Extensions:  []string{".avi"},
		MediaType:   "video",
		MIMETypes:   []string{"video/x-msvideo"},
		CanView:     true,
		CanEdit:     false,
		CanStrip:    false,
		Notes:       "RIFF-AVI container. View only in v0.1.2.",
	},
	core.FmtWMV: {
		Name:        "WMV",
		Extensions:  []string{".wmv"},
		MediaType:   "video",
		MIMETypes:   []string{"video/x-ms-wmv"},
		CanView:     true,
		CanEdit:     false,
		CanStrip:    false,
		Notes:       "ASF container. View only in v0.1.2.",
	},
	core.FmtFLV: {
		Name:        "FLV",
		Extensions:  []string{".flv"},
		MediaType:   "video",
		MIMETypes:   []string{"video/x-flv"},
		CanView:     true,
		CanEdit:     false,
		CanStrip:    false,
		Notes:       "Flash Video. View only in v0.1.2.",
	},
}

// ──────────────────────────────────────────────────────────────────────────────
// View
// ──────────────────────────────────────────────────────────────────────────────

func (h *Handler) View(path string) (*core.Metadata, error) {
	m := &core.Metadata{FilePath: path}
	ext := strings.ToLower(filepath.Ext(path))
	_ = ext

	switch h.format {
	case core.FmtMP4, core.FmtMOV:
		m.Format = formatInfo[h.format].Name
		return viewMP4(path, m)
	case core.FmtMKV, core.FmtWebM:
		m.Format = formatInfo[h.format].Name
		return viewMKV(path, m)
	case core.FmtAVI:
		m.Format = "AVI"
		return viewAVI(path, m)
	case core.FmtWMV:
		m.Format = "WMV"
		return viewWMV(path, m)
	case core.FmtFLV:
		m.Format = "FLV"
		return viewFLV(path, m)
	default:
		m.Format = strings.ToUpper(strings.TrimPrefix(ext, "."))
		return m, fmt.Errorf("unsupported video format: %s", ext)
	}
}

// ─── MP4 / MOV ───────────────────────────────────────────────────────────────

// iTunes metadata atom names → human-readable
var itunesAtomNames = map[string]string{
	"\xa9nam": "Title",
	"\xa9ART": "Artist",
	"\xa9alb": "Album",
	"\xa9day": "Year",
	"\xa9gen": "Genre",
	"\xa9cmt": "Comment",
	"\xa9lyr": "Lyrics",
	"\xa9too": "EncodingTool",
	"\xa9wrt": "Composer",
	"aART":    "AlbumArtist",
	"cprt":    "Copyright",
	"desc":    "Description",
	"ldes":    "LongDescription",
	"tvsh":    "TVShowName",
	"tvsn":    "TVSeason",
	"tves":    "TVEpisode",
	"tven":    "TVEpisodeName",
	"purl":    "PodcastURL",
	"catg":    "Category",
	"keyw":    "Keywords",
	"cpil":    "Compilation",
	"tmpo":    "BPM",
	"hdvd":    "HDVideo",
	"stik":    "MediaKind",
	"rtng":    "ContentRating",
}

// viewMP4 opens path through mp4tag, the ilst/udta/moov reader shared
// with the MP4-targeted Edit/Strip paths, and renders every tag it finds
// as a core.MetaField.
func viewMP4(path string, m *core.Metadata) (*core.Metadata, error) {
	h, err := mp4tag.Open(path)
	if err != nil {
		return m, err
	}
	defer h.Close()

	if err := h.Parse(); err != nil {
		return m, err
	}

	if d := h.Duration(); d > 0 {
		m.Fields = append(m.Fields, core.MetaField{
			Key:      "Duration",
			Value:    formatDuration(int(d / 1000)),
			Category: "MP4 Container",
			Editable: false,
		})
	}

	it := h.Iterate()
	for {
		t, ok := it.Next()
		if !ok {
			break
		}
		key := itunesAtomNames[t.Name]
		if key == "" {
			if alias, ok := mp4tag.FriendlyName(t.Name); ok {
				key = alias
			} else {
				key = t.Name
			}
		}
		category := "iTunes Metadata"
		editable := true
		if strings.HasPrefix(t.Name, "----") {
			category = "iTunes Custom"
		}
		if t.Binary {
			m.Fields = append(m.Fields, core.MetaField{
				Key:      key,
				Value:    fmt.Sprintf("<binary, %d bytes>", len(t.Data)),
				Category: category,
				Editable: editable,
				Raw:      t.CoverName,
			})
			continue
		}
		m.Fields = append(m.Fields, core.MetaField{
			Key:      key,
			Value:    t.Data,
			Category: category,
			Editable: editable,
		})
	}
	return m, nil
}

// ─── MKV / WebM ──────────────────────────────────────────────────────────────

// MKV uses EBML — a binary XML format.
// Element IDs for Segment Info:
const (
	ebmlIDSegment    = 0x18538067
	ebmlIDInfo       = 0x1549A966
	ebmlIDTitle      = 0x7BA9
	ebmlIDMuxingApp  = 0x4D80
	ebmlIDWritingApp = 0x5741
	ebmlIDDateUTC    = 0x4461
	ebmlIDDuration   = 0x4489
	ebmlIDDocType    = 0x4282
	ebmlIDTags       = 0x1254C367
	ebmlIDTag        = 0x7373
	ebmlIDTargets    = 0x63C0
	ebmlIDSimpleTag  = 0x67C8
	ebmlIDTagName    = 0x45A3
	ebmlIDTagString  = 0x4487
)

func viewMKV(path string, m *core.Metadata) (*core.Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return m, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, 512*1024)) // read first 512KB
	if err != nil {
		return m, err
	}

	parseEBML(data, m)
	return m, nil
}

func parseEBML(data []byte, m *core.Metadata) {
	i := 0
	for i < len(data) {
		id, idLen := readEBMLID(data, i)
		if idLen == 0 {
			break
		}
		i += idLen
		size, sizeLen := readEBMLSize(data, i)
		i += sizeLen

		if size < 0 || i+int(size) > len(data)+1 {
			break
		}

		payload := []byte{}
		if size > 0 && i+int(size) <= len(data) {
			payload = data[i : i+int(size)]
		}

		switch id {
		case 0x1A45DFA3: // EBML header
			parseEBMLHeader(payload, m)
		case ebmlIDInfo:
			parseEBMLInfo(payload, m)
		case ebmlIDTags:
			parseEBMLTags(payload, m)
		case ebmlIDSegment:
			parseEBML(payload, m) // recurse into Segment
		}

		i += int(size)
	}
}

func parseEBMLHeader(data []byte, m *core.Metadata) {
	i := 0
	for i < len(data) {
		id, idLen := readEBMLID(data, i)
		i += idLen
		size, sLen := readEBMLSize(data, i)
		i += sLen
		if size < 0 || i+int(size) > len(data) {
			break
		}
		payload := data[i : i+int(size)]
		if id == ebmlIDDocType {
			m.Fields = append(m.Fields, core.MetaField{
				Key:      "DocType",
				Value:    string(payload),
				Category: "EBML Header",
				Editable: false,
			})
		}
		i += int(size)
	}
}

func parseEBMLInfo(data []byte, m *core.Metadata) {
	i := 0
	for i < len(data) {
		id, idLen := readEBMLID(data, i)
		i += idLen
		size, sLen := readEBMLSize(data, i)
		i += sLen
		if size < 0 || i+int(size) > len(data) {
			break
		}
		payload := data[i : i+int(size)]

		switch id {
		case ebmlIDTitle:
			m.Fields = append(m.Fields, core.MetaField{
				Key:      "Title",
				Value:    string(payload),
				Category: "MKV Info",
				Editable: false,
			})
		case ebmlIDMuxingApp:
			m.Fields = append(m.Fields, core.MetaField{
				Key:      "MuxingApp",
				Value:    string(payload),
				Category: "MKV Info",
				Editable: false,
			})
		case ebmlIDWritingApp:
			m.Fields = append(m.Fields, core.MetaField{
				Key:      "WritingApp",
				Value:    string(payload),
				Category: "MKV Info",
				Editable: false,
			})
		}
		i += int(size)
	}
}

func parseEBMLTags(data []byte, m *core.Metadata) {
	i := 0
	for i < len(data) {
		id, idLen := readEBMLID(data, i)
		i += idLen
		size, sLen := readEBMLSize(data, i)
		i += sLen
		if size < 0 || i+int(size) > len(data) {
			break
		}
		if id == ebmlIDTag {
			parseEBMLTag(data[i:i+int(size)], m)
		}
		i += int(size)
	}
}

func parseEBMLTag(data []byte, m *core.Metadata) {
	i := 0
	for i < len(data) {
		id, idLen := readEBMLID(data, i)
		i += idLen
		size, sLen := readEBMLSize(data, i)
		i += sLen
		if size < 0 || i+int(size) > len(data) {
			break
		}
		payload := data[i : i+int(size)]
		if id == ebmlIDSimpleTag {
			parseEBMLSimpleTag(payload, m)
		}
		i += int(size)
	}
}

func parseEBMLSimpleTag(data []byte, m *core.Metadata) {
	var name, val string
	i := 0
	for i < len(data) {
		id, idLen := readEBMLID(data, i)
		i += idLen
		size, sLen := readEBMLSize(data, i)
		i += sLen
		if size < 0 || i+int(size) > len(data) {
			break
		}
		payload := data[i : i+int(size)]
		switch id {
		case ebmlIDTagName:
			name = string(payload)
		case ebmlIDTagString:
			val = string(payload)
		}
		i += int(size)
	}
	if name != "" && val != "" {
		m.Fields = append(m.Fields, core.MetaField{
			Key:      name,
			Value:    val,
			Category: "MKV Tags",
			Editable: false,
		})
	}
}

// readEBMLID reads a variable-length EBML element ID.
func readEBMLID(data []byte, pos int) (id uint32, length int) {
	if pos >= len(data) {
		return 0, 0
	}
	b := data[pos]
	if b == 0 {
		return 0, 1
	}
	if b&0x80 != 0 {
		return uint32(b), 1
	}
	if b&0x40 != 0 && pos+1 < len(data) {
		return uint32(b)<<8 | uint32(data[pos+1]), 2
	}
	if b&0x20 != 0 && pos+2 < len(data) {
		return uint32(b)<<16 | uint32(data[pos+1])<<8 | uint32(data[pos+2]), 3
	}
	if b&0x10 != 0 && pos+3 < len(data) {
		return uint32(b)<<24 | uint32(data[pos+1])<<16 | uint32(data[pos+2])<<8 | uint32(data[pos+3]), 4
	}
	return 0, 1
}

// readEBMLSize reads a variable-length EBML data size.
func readEBMLSize(data []byte, pos int) (size int64, length int) {
	if pos >= len(data) {
		return 0, 0
	}
	b := data[pos]
	if b&0x80 != 0 {
		return int64(b & 0x7F), 1
	}
	if b&0x40 != 0 && pos+1 < len(data) {
		return int64(b&0x3F)<<8 | int64(data[pos+1]), 2
	}
	if b&0x20 != 0 && pos+2 < len(data) {
		return int64(b&0x1F)<<16 | int64(data[pos+1])<<8 | int64(data[pos+2]), 3
	}
	if b&0x10 != 0 && pos+3 < len(data) {
		return int64(b&0x0F)<<24 | int64(data[pos+1])<<16 | int64(data[pos+2])<<8 | int64(data[pos+3]), 4
	}
	if b&0x08 != 0 && pos+4 < len(data) {
		return int64(b&0x07)<<32 | int64(data[pos+1])<<24 | int64(data[pos+2])<<16 |
			int64(data[pos+3])<<8 | int64(data[pos+4]), 5
	}
	return -1, 1
}

// ─── AVI ─────────────────────────────────────────────────────────────────────

func viewAVI(path string, m *core.Metadata) (*core.Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if len(data) < 12 {
		return m, fmt.Errorf("AVI too short")
	}

	// Parse RIFF/AVI INFO list
	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		offset += 8
		if offset+chunkSize > len(data) {
			break
		}
		if chunkID == "LIST" && chunkSize >= 4 && string(data[offset:offset+4]) == "INFO" {
			pos := offset + 4
			end := offset + chunkSize
			for pos+8 <= end {
				infoID := string(data[pos : pos+4])
				infoSize := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
				pos += 8
				if pos+infoSize > end {
					break
				}
				val := strings.TrimRight(string(data[pos:pos+infoSize]), "\x00")
				if val != "" {
					m.Fields = append(m.Fields, core.MetaField{
						Key:      infoID,
						Value:    val,
						Category: "AVI INFO",
						Editable: false,
					})
				}
				pos += infoSize
				if infoSize%2 != 0 {
					pos++
				}
			}
		}
		if chunkID == "avih" && chunkSize >= 32 {
			// Main AVI header
			width := binary.LittleEndian.Uint32(data[offset+32 : offset+36])
			height := binary.LittleEndian.Uint32(data[offset+36 : offset+40])
			m.Fields = append(m.Fields,
				core.MetaField{Key: "Width", Value: fmt.Sprintf("%d px", width), Category: "AVI Header", Editable: false},
				core.MetaField{Key: "Height", Value: fmt.Sprintf("%d px", height), Category: "AVI Header", Editable: false},
			)
		}
		offset += chunkSize
		if chunkSize%2 != 0 {
			offset++
		}
	}
	return m, nil
}

// ─── WMV / ASF ───────────────────────────────────────────────────────────────

var asfContentDescGUID = []byte{
	0x33, 0x26, 0xB2, 0x75, 0x8E, 0x66, 0xCF, 0x11,
	0xA6, 0xD9, 0x00, 0xAA, 0x00, 0x62, 0xCE, 0x6C,
}

func viewWMV(path string, m *core.Metadata) (*core.Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if len(data) < 30 {
		return m, fmt.Errorf("WMV too short")
	}

	// Walk ASF objects
	offset := 30 // skip ASF Header Object header (16 GUID + 8 size + 4 num headers + 2 reserved)
	// Actually ASF Header is: 16 GUID + 8 size total. Objects start at 30.
	// Let's parse from 0
	offset = 0
	limit := len(data)
	for offset+24 <= limit {
		guid := data[offset : offset+16]
		size := int(binary.LittleEndian.Uint64(data[offset+16 : offset+24]))
		if size < 24 || offset+size > limit {
			break
		}
		payload := data[offset+24 : offset+size]

		if bytes.Equal(guid, asfContentDescGUID) {
			parseASFContentDesc(payload, m)
		}
		offset += size
	}
	return m, nil
}

func parseASFContentDesc(data []byte, m *core.Metadata) {
	if len(data) < 10 {
		return
	}
	fields := []string{"Title", "Author", "Copyright", "Description", "Rating"}
	pos := 0
	for _, name := range fields {
		if pos+2 > len(data) {
			break
		}
		fLen := int(binary.LittleEndian.Uint16(data[pos : pos+2]))
		pos += 2
		if pos+fLen > len(data) {
			break
		}
		// UTF-16LE
		val := utf16LEToString(data[pos : pos+fLen])
		if val != "" {
			m.Fields = append(m.Fields, core.MetaField{
				Key:      name,
				Value:    val,
				Category: "WMV/ASF",
				Editable: false,
			})
		}
		pos += fLen
	}
}

func utf16LEToString(b []byte) string {
	if len(b) < 2 {
		return ""
	}
	var runes []rune
	for i := 0; i+1 < len(b); i += 2 {
		r := rune(binary.LittleEndian.Uint16(b[i : i+2]))
		if r == 0 {
			break
		}
		runes = append(runes, r)
	}
	return string(runes)
}

// ─── FLV ─────────────────────────────────────────────────────────────────────

func viewFLV(path string, m *core.Metadata) (*core.Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if len(data) < 9 {
		return m, fmt.Errorf("FLV too short")
	}

	// FLV header: F L V + version + type flags + data offset
	version := data[3]
	hasVideo := (data[4] & 0x01) != 0
	hasAudio := (data[4] & 0x04) != 0

	m.Fields = append(m.Fields,
		core.MetaField{Key: "Version", Value: fmt.Sprintf("%d", version), Category: "FLV Header", Editable: false},
		core.MetaField{Key: "HasVideo", Value: fmt.Sprintf("%v", hasVideo), Category: "FLV Header", Editable: false},
		core.MetaField{Key: "HasAudio", Value: fmt.Sprintf("%v", hasAudio), Category: "FLV Header", Editable: false},
	)

	// Try to find onMetaData AMF object in first script tag
	offset := int(binary.BigEndian.Uint32(data[5:9]))
	offset += 4 // skip PreviousTagSize0
	for offset+11 < len(data) {
		tagType := data[offset]
		dataSize := int(data[offset+1])<<16 | int(data[offset+2])<<8 | int(data[offset+3])
		if tagType == 18 && dataSize > 0 { // Script tag
			scriptData := data[offset+11 : offset+11+dataSize]
			parseAMFMetadata(scriptData, m)
			break
		}
		offset += 11 + dataSize + 4 // tag header + data + PreviousTagSize
	}
	return m, nil
}

func parseAMFMetadata(data []byte, m *core.Metadata) {
	// AMF0: type byte + data
	// Type 2 = string, Type 0 = number, Type 1 = boolean, Type 8 = ECMA array
	if len(data) < 3 {
		return
	}
	// First value is usually string "onMetaData"
	if data[0] == 0x02 {
		strLen := int(binary.BigEndian.Uint16(data[1:3]))
		if 3+strLen >= len(data) {
			return
		}
		name := string(data[3 : 3+strLen])
		if name != "onMetaData" {
			return
		}
		rest := data[3+strLen:]
		if len(rest) < 1 {
			return
		}
		// Should be ECMA array (type 8)
		if rest[0] != 0x08 || len(rest) < 5 {
			return
		}
		count := int(binary.BigEndian.Uint32(rest[1:5]))
		pos := 5
		for i := 0; i < count && pos+2 < len(rest); i++ {
			kLen := int(binary.BigEndian.Uint16(rest[pos : pos+2]))
			pos += 2
			if pos+kLen >= len(rest) {
				break
			}
			key := string(rest[pos : pos+kLen])
			pos += kLen
			if pos >= len(rest) {
				break
			}
			typ := rest[pos]
			pos++
			var val string
			switch typ {
			case 0x00: // number
				if pos+8 > len(rest) {
					break
				}
				// IEEE 754 float64
				bits := binary.BigEndian.Uint64(rest[pos : pos+8])
				f := math_Float64frombits(bits)
				val = fmt.Sprintf("%g", f)
				pos += 8
			case 0x01: // boolean
				if pos >= len(rest) {
					break
				}
				if rest[pos] != 0 {
					val = "true"
				} else {
					val = "false"
				}
				pos++
			case 0x02: // string
				if pos+2 > len(rest) {
					break
				}
				sLen := int(binary.BigEndian.Uint16(rest[pos : pos+2]))
				pos += 2
				if pos+sLen > len(rest) {
					break
				}
				val = string(rest[pos : pos+sLen])
				pos += sLen
			default:
				break
			}
			if key != "" && val != "" {
				m.Fields = append(m.Fields, core.MetaField{
					Key:      key,
					Value:    val,
					Category: "FLV Metadata",
					Editable: false,
				})
			}
		}
	}
}

// math_Float64frombits — stdlib math.Float64frombits alias to avoid import cycle
func math_Float64frombits(b uint64) float64 {
	var f float64
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, b)
	binary.Read(bytes.NewReader(buf), binary.BigEndian, &f)
	return f
}

// ──────────────────────────────────────────────────────────────────────────────
// Edit
// ──────────────────────────────────────────────────────────────────────────────

func (h *Handler) Edit(path string, outPath string, opts core.EditOptions) error {
	out := core.ResolveOutPath(path, outPath)
	switch h.format {
	case core.FmtMP4:
		return editMP4(path, out, opts)
	default:
		info := formatInfo[h.format]
		if !info.CanEdit {
			return fmt.Errorf("%s does not support metadata editing in v0.1.2", info.Name)
		}
		return fmt.Errorf("edit not yet implemented for %s", info.Name)
	}
}

// editMP4 updates iTunes-style metadata atoms via mp4tag, which owns the
// full moov/udta/meta/ilst rewrite (in-place patch or crash-safe full
// rewrite, whichever the change fits in).
func editMP4(path, outPath string, opts core.EditOptions) error {
	if opts.DryRun {
		fmt.Println("Dry-run: MP4 metadata atoms would be updated:")
		for k, v := range opts.Set {
			fmt.Printf("  %s = %s\n", k, v)
		}
		for _, k := range opts.Delete {
			fmt.Printf("  delete %s\n", k)
		}
		return nil
	}

	if outPath != path {
		if err := copyFile(path, outPath); err != nil {
			return err
		}
	}

	h, err := mp4tag.Open(outPath)
	if err != nil {
		return err
	}
	defer h.Close()

	if err := h.Parse(); err != nil {
		return err
	}

	changed := false
	for k, v := range opts.Set {
		if err := h.SetTag(atomKeyFor(k), v, false); err != nil {
			return fmt.Errorf("set %s: %w", k, err)
		}
		changed = true
	}
	for _, k := range opts.Delete {
		if err := h.DeleteTag(atomKeyFor(k)); err != nil {
			return fmt.Errorf("delete %s: %w", k, err)
		}
		changed = true
	}

	if !changed {
		return fmt.Errorf("no recognised fields to set")
	}
	return h.Write()
}

// atomKeyFor maps a friendly field name (as used in EditOptions.Set/
// Delete, e.g. "Title" or "©nam") onto the raw on-disk atom name mp4tag
// expects. A caller typing the copyright glyph gets its 2-byte UTF-8
// form folded down to the single raw 0xA9 byte mp4tag's atom names use
// before the lookup below ever compares them.
func atomKeyFor(k string) string {
	if strings.HasPrefix(k, "©") && len(k) == len("©")+3 {
		k = "\xa9" + k[len("©"):]
	}
	for aKey, aName := range itunesAtomNames {
		if strings.EqualFold(aName, k) || strings.EqualFold(aKey, k) {
			return aKey
		}
	}
	return k
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

// ──────────────────────────────────────────────────────────────────────────────
// Strip
// ──────────────────────────────────────────────────────────────────────────────

func (h *Handler) Strip(path string, outPath string, opts core.StripOptions) error {
	out := core.ResolveOutPath(path, outPath)
	switch h.format {
	case core.FmtMP4, core.FmtMOV:
		return stripMP4(path, out, opts)
	default:
		info := formatInfo[h.format]
		if !info.CanStrip {
			return fmt.Errorf("%s does not support strip in v0.1.2", info.Name)
		}
		return fmt.Errorf("strip not yet implemented for %s", info.Name)
	}
}

func stripMP4(path, outPath string, opts core.StripOptions) error {
	if opts.DryRun {
		fmt.Println("Dry-run: MP4 udta/ilst metadata atoms would be removed")
		return nil
	}

	if outPath != path {
		if err := copyFile(path, outPath); err != nil {
			return err
		}
	}

	h, err := mp4tag.Open(outPath)
	if err != nil {
		return err
	}
	defer h.Close()

	if err := h.Parse(); err != nil {
		return err
	}

	if len(opts.KeepFields) == 0 || opts.StripAll {
		if err := h.CleanTags(); err != nil {
			return err
		}
		return h.Write()
	}

	keep := make(map[string]bool, len(opts.KeepFields))
	for _, k := range opts.KeepFields {
		keep[atomKeyFor(k)] = true
	}

	it := h.Iterate()
	var toDelete []string
	for {
		t, ok := it.Next()
		if !ok {
			break
		}
		if !keep[t.Name] {
			toDelete = append(toDelete, t.Name)
		}
	}
	for _, name := range toDelete {
		if err := h.DeleteTag(name); err != nil {
			return err
		}
	}
	return h.Write()
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func formatDuration(seconds int) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%dh %02dm %02ds", h, m, s)
	}
	return fmt.Sprintf("%dm %02ds", m, s)
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// Ensure no unused imports
var _ = io.ReadFull
var _ = strings.TrimSpace
var _ = filepath.Ext
