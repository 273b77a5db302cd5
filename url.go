package coap

// SplitURL converts a path/query string such as "/a/b?x=1&y=2" into
// the option sequence RFC 7252 expects: a Uri-Host option carrying
// host verbatim (the dotted-quad IPv4 or textual IPv6 of the
// destination, per spec.md section 4.2), one Uri-Path option per
// slash-delimited segment (the empty leading segment before a leading
// "/" is skipped), then one Uri-Query option per "&"-delimited
// segment after the first "?". Only the first "?" separates path from
// query; later "?" bytes are literal query content. Segment
// boundaries are byte-exact: no percent-decoding, no trimming.
func SplitURL(host string, url string) []Option {
	opts := []Option{{ID: URIHost, Value: []byte(host)}}

	idx := 0
	hasQuery := false
	for i := 0; i < len(url); i++ {
		switch {
		case url[i] == '/' && !hasQuery:
			opts = appendSegment(opts, URIPath, url[idx:i])
			idx = i + 1
		case url[i] == '?' && !hasQuery:
			opts = appendSegment(opts, URIPath, url[idx:i])
			hasQuery = true
			idx = i + 1
		case url[i] == '&' && hasQuery:
			opts = append(opts, Option{ID: URIQuery, Value: []byte(url[idx:i])})
			idx = i + 1
		}
	}

	if idx <= len(url) {
		if hasQuery {
			opts = append(opts, Option{ID: URIQuery, Value: []byte(url[idx:])})
		} else {
			opts = appendSegment(opts, URIPath, url[idx:])
		}
	}

	return opts
}

// appendSegment appends a Uri-Path option for every "/"-delimited
// segment except one that is empty because the URL began with "/".
func appendSegment(opts []Option, id OptionID, seg string) []Option {
	if seg == "" && len(opts) == 1 {
		// Leading "/" producing an empty first segment: skip it, as
		// spec.md section 4.2 requires.
		return opts
	}
	return append(opts, Option{ID: id, Value: []byte(seg)})
}
