package helper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	juju "github.com/juju/errors"
	"github.com/niukuo/git-remote-bucket/objstore"
	"github.com/niukuo/git-remote-bucket/refs"
)

// list reports one "<hash> <ref>" line per ref found in the bucket,
// then the default branch as a symref when the bucket records one.
func (h *helper) list(ctx context.Context, line string) error {
	if line != "list" && line != "list for-push" {
		return fmt.Errorf("%w: malformed list %q", refs.ErrProtocolFault, line)
	}
	if h.store == nil {
		return h.writeLines("")
	}

	tips, err := h.listTips(ctx)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(tips))
	for name := range tips {
		names = append(names, string(name))
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names)+2)
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("%s %s", tips[plumbing.ReferenceName(name)], name))
	}

	head, err := h.readHead(ctx)
	if err != nil {
		return err
	}
	if head != "" {
		lines = append(lines, fmt.Sprintf("@%s %s", head, plumbing.HEAD))
	}

	lines = append(lines, "")
	return h.writeLines(lines...)
}

func (h *helper) listTips(ctx context.Context) (map[plumbing.ReferenceName]plumbing.Hash, error) {
	listPrefix := "refs/"
	if h.prefix != "" {
		listPrefix = h.prefix + "/refs/"
	}

	keys, err := h.store.List(ctx, listPrefix)
	if err != nil {
		return nil, juju.Annotatef(err, "list %s", listPrefix)
	}

	tips := make(map[plumbing.ReferenceName]plumbing.Hash)
	for _, key := range keys {
		hash, name, ok := objstore.ParseBundleKey(h.prefix, key)
		if !ok {
			h.logger.Debugf("skip key %s", key)
			continue
		}
		if prev, ok := tips[name]; ok {
			h.logger.Warningf("ref %s has more than one bundle, %s and %s, using the latter", name, prev, hash)
		}
		tips[name] = hash
	}
	return tips, nil
}

// readHead returns the ref name stored in <prefix>/HEAD, or "" if the
// bucket has none.
func (h *helper) readHead(ctx context.Context) (plumbing.ReferenceName, error) {
	key := path.Join(h.prefix, objstore.HeadKey)
	body, err := h.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, objstore.ErrNotFound) {
			return "", nil
		}
		return "", juju.Annotatef(err, "get %s", key)
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return "", juju.Annotatef(err, "read %s", key)
	}

	name := strings.TrimSpace(string(data))
	if err := refs.ValidateName(name); err != nil || name == plumbing.HEAD.String() {
		h.logger.Warningf("ignore invalid %s content %q", key, name)
		return "", nil
	}
	return plumbing.ReferenceName(name), nil
}
