package mcpserver

// LinkSyntax describes how links are written in omni content files and how
// they resolve. LLM consumers should read it before suggesting links.
const LinkSyntax = `# omni Link Syntax

Every tracked file is a node. A link names a node by its logical path,
written with dots: ` + "`" + `linalg.vector` + "`" + `. The last component is a node name,
the ones before it are directories below the content prefix, aliases allowed.

## Resolution

1. A bare name (` + "`" + `vector` + "`" + `) matches every node carrying that name. One match
   resolves; several matches are an error, qualify the link with directories.
2. A qualified link (` + "`" + `cs.rust.vector` + "`" + `) matches the node whose directories
   end with the given ones.
3. A link that matches no node is a **ghost**. Ghosts are valid: they become
   real links the moment a node with that name is built.
4. Directory aliases from ` + "`" + `omni.toml` + "`" + ` (` + "`" + `[dir_aliases]` + "`" + `) expand before
   matching, so ` + "`" + `linalg.vector` + "`" + ` reaches ` + "`" + `src/cs/linear-algebra/vector.typ` + "`" + `.

Call ` + "`" + `suggest_links` + "`" + ` to get the shortest unambiguous link for every node.

## Markdown (.md)

` + "```" + `markdown
---
title: Vectors
names: [vector, vec]
tags: [math]
---

See [[linalg.matrix]] and [[matrix|the matrix page]].
Jump to a heading with [[matrix#Rank]] or a label with [[matrix#^def]].
` + "```" + `

## Typst (.typ)

` + "```" + `typst
#import "/resources/typst/lib/omni.typ": *

#frontmatter(title: "Vectors", names: ("vector", "vec"), tags: ("math",))

See #omni-link("linalg.matrix") and #omni-link("matrix", alias: "the matrix page").
` + "```" + `

## Rules

1. Frontmatter is mandatory. In Markdown ` + "`" + `names` + "`" + ` defaults to the file name.
2. Path components are non-empty and contain no dots or slashes.
3. Links are stored by node id, so renaming a directory alias never breaks them.
`
