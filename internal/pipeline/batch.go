package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// RunList runs every link in the file at path, one per line. A link that
// fails is reported and the next one is tried. Only failure to read the
// list is returned.
func (p *Pipeline) RunList(ctx context.Context, path, baseFolder, quality string) error {
	links, err := p.readLinks(path)
	if err != nil {
		return err
	}

	total := len(links)
	for i, link := range links {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.Run(ctx, link, baseFolder, quality); err != nil {
			p.reporter.LinkFailed(link, err)
		}
		p.reporter.BatchProgress(i+1, total)
	}
	return nil
}

// readLinks snapshots the non-empty lines of the list file.
func (p *Pipeline) readLinks(path string) ([]string, error) {
	f, err := p.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open list %s: %w", path, err)
	}
	defer f.Close()

	var links []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			links = append(links, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read list %s: %w", path, err)
	}
	return links, nil
}
