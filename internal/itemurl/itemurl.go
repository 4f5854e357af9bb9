// Package itemurl derives stable identifiers and artifact paths from
// catalog item URLs of the form {base}/{category-path}/{slug}-{numeric-id}.
package itemurl

import (
	"net/url"
	"path"
	"strings"
)

// ID returns the numeric identifier embedded in the final path segment of an
// item URL. The id is the part of the slug before the first dash and stays
// stable when the slug text changes.
func ID(itemURL string) string {
	seg := itemURL[strings.LastIndex(itemURL, "/")+1:]
	id, _, _ := strings.Cut(seg, "-")
	return id
}

// CategoryPath strips the site base URL and the trailing slug segment,
// leaving only the category path.
//
// In:  https://www.vinted.cz/zeny/obleceni/saty/mini-saty/2353299058-deezee-bezove-saty
// Out: zeny/obleceni/saty/mini-saty
func CategoryPath(itemURL, baseURL string) string {
	p := strings.TrimPrefix(itemURL, baseURL)
	p = strings.TrimPrefix(p, "/")
	parts := strings.Split(p, "/")
	return strings.Join(parts[:len(parts)-1], "/")
}

// ImageKey returns the object key where the item's scraped image is expected:
// the category path plus "{id}.png" under prefix, or "{id}_0.png" for the
// numbered variant used by multi-image items.
func ImageKey(itemURL, baseURL, prefix string, numbered bool) string {
	name := ID(itemURL) + ".png"
	if numbered {
		name = ID(itemURL) + "_0.png"
	}
	return path.Join(prefix, CategoryPath(itemURL, baseURL), name)
}

// StartingURL builds the first listing page for a category, e.g.
// base https://www.vinted.cz/, category "zeny", section "obleceni" gives
// https://www.vinted.cz/zeny/obleceni.
func StartingURL(baseURL, category, section string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return strings.TrimSuffix(baseURL, "/") + "/" + path.Join(category, section)
	}
	u.Path = path.Join(u.Path, category, section)
	return u.String()
}
