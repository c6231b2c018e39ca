package mp4tag

// identType values mirror the MP4TAG_ID_* flag byte stored in a tag's
// 'data' sub-box (offset 7 of the data atom header).
const (
	identBool   = 0x15
	identString = 0x01
	identData   = 0x00
	identNum    = 0x15
	identJPG    = 0x0d
	identPNG    = 0x0e
)

// Box/atom identifiers this package descends into or emits.
const (
	boxCo64   = "co64"
	boxFree   = "free"
	boxFtyp   = "ftyp"
	boxHdlr   = "hdlr"
	boxIlst   = "ilst"
	boxMdhd   = "mdhd"
	boxMdia   = "mdia"
	boxMeta   = "meta"
	boxMinf   = "minf"
	boxMoov   = "moov"
	boxStbl   = "stbl"
	boxStco   = "stco"
	boxTrak   = "trak"
	boxUdta   = "udta"
	boxCovr   = "covr"
	boxCustom = "----"
	boxDisk   = "disk"
	boxGnre   = "gnre"
	boxTrkn   = "trkn"
	boxData   = "data"
	boxMean   = "mean"
	boxName   = "name"
)

const (
	priCustom  = 8
	priNoWrite = -1
	priMax     = 20
	levelMax   = 15
	// copyrightPrefix is the single raw byte 0xA9 iTunes prefixes its
	// handful of "well known" string tags with on disk ("\xa9nam" etc) --
	// not the 2-byte UTF-8 encoding of U+00A9, which would make the box
	// type 5 bytes instead of the 4 every MP4 box type must be.
	copyrightPrefix = "\xa9"
)

// TagDef is one entry of the registry of tags this package understands:
// its write priority, its on-disk identtype, and (for fixed-width
// numeric/data tags) its payload length.
type TagDef struct {
	Priority int
	Tag      string
	IdentType int
	Len       int
}

// tagList must stay sorted in ascii order by Tag: lookups use a linear
// scan (the registry is small enough that a map would not be any
// clearer), but keeping it sorted matches the reference table and makes
// the list easy to diff against updates to it.
var tagList = []TagDef{
	{2, "aART", identString, 0},
	{6, "akID", identNum, 1},
	{6, "atID", identNum, 4},
	{7, "catg", identString, 0},
	{6, "cmID", identNum, 4},
	{6, "cnID", identNum, 4},
	{10, "covr", identJPG, 0},
	{5, "cpil", identNum, 1},
	{7, "cprt", identString, 0},
	{7, "desc", identString, 0},
	{4, "disk", identData, 6},
	{7, "egid", identString, 0},
	{6, "geID", identNum, 4},
	{priNoWrite, "gnre", identData, 2},
	{6, "hdvd", identNum, 1},
	{7, "keyw", identString, 0},
	{7, "ldes", identString, 0},
	{7, "ownr", identString, 0},
	{5, "pcst", identBool, 1},
	{5, "pgap", identBool, 1},
	{6, "plID", identNum, 8},
	{7, "purd", identString, 0},
	{7, "purl", identString, 0},
	{6, "rtng", identNum, 1},
	{6, "sfID", identNum, 4},
	{6, "shwm", identBool, 1},
	{7, "soaa", identString, 0},
	{7, "soal", identString, 0},
	{7, "soar", identString, 0},
	{7, "soco", identString, 0},
	{7, "sonm", identString, 0},
	{7, "sosn", identString, 0},
	{6, "stik", identNum, 1},
	{5, "tmpo", identNum, 2},
	{4, "trkn", identData, 8},
	{7, "tven", identString, 0},
	{6, "tves", identNum, 4},
	{7, "tvnn", identString, 0},
	{7, "tvsh", identString, 0},
	{6, "tvsn", identNum, 4},
	{1, copyrightPrefix + "ART", identString, 0},
	{2, copyrightPrefix + "alb", identString, 0},
	{7, copyrightPrefix + "cmt", identString, 0},
	{5, copyrightPrefix + "day", identString, 0},
	{7, copyrightPrefix + "dir", identString, 0},
	{3, copyrightPrefix + "gen", identString, 0},
	{7, copyrightPrefix + "grp", identString, 0},
	{9, copyrightPrefix + "lyr", identString, 0},
	{6, copyrightPrefix + "mvc", identNum, 2},
	{6, copyrightPrefix + "mvi", identNum, 2},
	{7, copyrightPrefix + "mvn", identString, 0},
	{0, copyrightPrefix + "nam", identString, 0},
	{7, copyrightPrefix + "nrt", identString, 0},
	{7, copyrightPrefix + "pub", identString, 0},
	{5, copyrightPrefix + "too", identString, 0},
	{7, copyrightPrefix + "wrk", identString, 0},
	{2, copyrightPrefix + "wrt", identString, 0},
}

// friendlyName maps a handful of well-known tags (including
// "----:com.apple.iTunes:..." custom tags) to a human-friendly alias,
// purely for display; the on-disk tag name is always the registry key.
var friendlyName = map[string]string{
	"----:com.apple.iTunes:MusicBrainz Release Group Id":      "MUSICBRAINZ_RELEASEGROUPID",
	"----:com.apple.iTunes:MusicBrainz Original Artist Id":    "MUSICBRAINZ_ORIGINALARTISTID",
	"----:com.apple.iTunes:MusicBrainz Original Album Id":     "MUSICBRAINZ_ORIGINALALBUMID",
	"----:com.apple.iTunes:MusicBrainz Disc Id":                "MUSICBRAINZ_DISCID",
	"----:com.apple.iTunes:MusicBrainz Artist Id":              "MUSICBRAINZ_ARTISTID",
	"----:com.apple.iTunes:MusicBrainz Album Type":             "MUSICBRAINZ_ALBUMTYPE",
	"----:com.apple.iTunes:MusicBrainz Album Status":           "MUSICBRAINZ_ALBUMSTATUS",
	"----:com.apple.iTunes:MusicBrainz Album Release Country":  "MUSICBRAINZ_ALBUMRELEASECOUNTRY",
	"----:com.apple.iTunes:MusicBrainz Album Id":                "MUSICBRAINZ_ALBUMID",
	"----:com.apple.iTunes:MusicBrainz Album Artist Id":         "MUSICBRAINZ_ALBUMARTISTID",
	"----:com.apple.iTunes:CONDUCTOR":                           "CONDUCTOR",
	"----:com.apple.iTunes:MusicBrainz Release Track Id":        "MUSICBRAINZ_RELEASETRACKID",
	"----:com.apple.iTunes:MusicBrainz Track Id":                "MUSICBRAINZ_TRACKID",
	"----:com.apple.iTunes:MusicBrainz Work Id":                 "MUSICBRAINZ_WORKID",
	"aART": "ALBUMARTIST",
	"covr": "METADATA_BLOCK_PICTURE",
	"cpil": "COMPILATION",
	"cprt": "COPYRIGHT",
	"desc": "DESCRIPTION",
	"disk": "DISCNUMBER",
	"egid": "episodeglobaluniqueid",
	"gnre": "GENRE",
	"hdvd": "hdvideo",
	"pcst": "podcast",
	"catg": "podcastcategory",
	"ldes": "podcastdescription",
	"keyw": "podcastkeywords",
	"ownr": "owner",
	"purl": "podcasturl",
	"pgap": "gaplessplayback",
	"purd": "purchasedate",
	"rtng": "itunesrating",
	"shwm": "SHOWMOVEMENT",
	"soaa": "ALBUMARTISTSORT",
	"soal": "ALBUMSORT",
	"soar": "ARTISTSORT",
	"soco": "COMPOSERSORT",
	"sonm": "TITLESORT",
	"tmpo": "BPM",
	"trkn": "TRACKNUMBER",
	"tves": "tvepisode",
	"tvsh": "tvshowname",
	"tvsn": "tvseason",
	copyrightPrefix + "ART": "ARTIST",
	copyrightPrefix + "alb": "ALBUM",
	copyrightPrefix + "cmt": "COMMENT",
	copyrightPrefix + "dir": "DIRECTOR",
	copyrightPrefix + "day": "YEAR",
	copyrightPrefix + "gen": "GENRE",
	copyrightPrefix + "grp": "GROUPING",
	copyrightPrefix + "lyr": "LYRICS",
	copyrightPrefix + "mvc": "MOVEMENTTOTAL",
	copyrightPrefix + "mvi": "MOVEMENT",
	copyrightPrefix + "pub": "PUBLISHER",
	copyrightPrefix + "mvn": "MOVEMENTNAME",
	copyrightPrefix + "nam": "TITLE",
	copyrightPrefix + "nrt": "NARRATOR",
	copyrightPrefix + "too": "ENCODEDBY",
	copyrightPrefix + "wrk": "WORK",
	copyrightPrefix + "wrt": "COMPOSER",
	"stik": "mediatype",
}

// checkTag looks a tag up in the registry. "covr:N" / "covr:N:name"
// lookups are normalized to the bare "covr" key first, mirroring
// mp4tag_check_tag.
func checkTag(tag string) *TagDef {
	key := tag
	if len(tag) >= len(boxCovr) && tag[:len(boxCovr)] == boxCovr {
		key = boxCovr
	}
	for i := range tagList {
		if tagList[i].Tag == key {
			return &tagList[i]
		}
	}
	return nil
}

// priorityFor returns the write-ordering priority for a tag name: its
// registry priority if known, priCustom for "----" custom tags, and
// priMax (written last) for anything else.
func priorityFor(name string) int {
	if len(name) >= len(boxCustom) && name[:len(boxCustom)] == boxCustom {
		return priCustom
	}
	if def := checkTag(name); def != nil {
		return def.Priority
	}
	return priMax
}

// iTunes 'stik' media type values (MP4TAG_MEDIA_TYPE_*).
const (
	MediaTypeMovieOld       = 0
	MediaTypeMusic          = 1
	MediaTypeAudiobook      = 2
	MediaTypeWhackedBookmark = 5
	MediaTypeMusicVideo     = 6
	MediaTypeMovie          = 9
	MediaTypeTVShow         = 10
	MediaTypeBooklet        = 11
	MediaTypeRingtone       = 14
	MediaTypePodcast        = 21
	MediaTypeITunesU        = 23
)
