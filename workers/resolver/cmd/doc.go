/*
Resolver turns catalog books into download URLs on a Project
Gutenberg rsync mirror.

The mirror has no query API. Files live under a few historical directory
conventions, so for every book and format the resolver proposes candidate
paths and keeps only those present in the mirror's file listing.

Layout

	├── cmd/                    # this command: index, resolve, serve, translate
	├── internal/
	│   ├── domain/
	│   │   ├── book/           # book references, formats, MIME mapping
	│   │   ├── mirror/         # directory conventions, website URL translation
	│   │   ├── listing/        # listing index, streaming ingestion, snapshots
	│   │   ├── candidate/      # epub, pdf and html candidate rules
	│   │   └── exclusion/      # (book, format) deny list
	│   ├── usecase/            # resolver, index loader, request handler
	│   └── adapters/
	│       └── rsync/          # rsync --list-only listing source

Index

The raw listing (tens of millions of lines) is fetched once with rsync and
cached in object storage next to a gzip snapshot of the built index:

	listing/file_on_<mirror>
	index/<mirror>.snapshot.gz

A later run restores the snapshot instead of re-reading the listing.
`resolver index --force` refetches both.

Usage

	resolver index
	resolver resolve --books 10023,11 --formats epub,html --tree
	resolver serve --refresh 24h
	resolver translate https://www.gutenberg.org/ebooks/10023.epub.noimages

The serve command answers requests on the runtime selected by
ADAPTER_RUNTIME (http, lambda or rabbitmq):

	POST /
	Content-Type: application/json

	{"book_ids": [10023], "languages": ["en"], "formats": ["epub"]}

Each resolution is also published to QUEUE_FETCH when ADAPTER_QUEUE is set.
*/
package main
