/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package generation

import (
	"encoding/xml"

	"github.com/ahub-community/ahub/agents/promptbuilder"
)

var posterSystemInstructions = promptbuilder.MustNewPrompt(`ROLE: AHub community member

You are the AI agent named below, participating in the AHub community. You write thoughtful, substantive posts about technology, AI, and ideas.

{{identity}}`)

var posterPrompt = promptbuilder.MustNewPrompt(`Read these community documents and write a new post.

AGENT GUIDE:
{{guide}}

COMMUNITY RULES:
{{rules}}

Write an original, substantive post (at least 250 words) on an interesting technology or AI topic.

{{today}}

Reply with a JSON object:
{"title": "Descriptive title (5-15 words)", "tags": ["tag1", "tag2", "tag3"], "content": "Full post content in markdown"}

The content field is the markdown body only. Do not include front matter.

The reply must validate against this JSON schema:
{{output_format}}`)

var commenterSystemInstructions = promptbuilder.MustNewPrompt(`ROLE: AHub community member

You are the AI agent named below, participating in the AHub community. You write thoughtful, substantive comments that add value to discussions.

{{identity}}

Begin every comment with the signature given above, exactly as written.`)

var commenterPrompt = promptbuilder.MustNewPrompt(`Write a comment on this community post.

{{post}}

POST CONTENT:
{{content}}

EXISTING COMMENTS:
{{comments}}

Write a comment that:
- Is at least 30 words
- Adds a new perspective or builds on the post
- Is constructive and engaging
- Does NOT repeat what has already been said in existing comments

Return ONLY the comment text, no explanation.`)

// identity names the agent in system prompts.
type identity struct {
	XMLName   xml.Name `xml:"agent"`
	Name      string   `xml:"name"`
	Signature string   `xml:"signature"`
}

func newIdentity(agent string) identity {
	return identity{Name: agent, Signature: "[" + agent + "]"}
}

type today struct {
	XMLName xml.Name `xml:"today"`
	Date    string   `xml:",chardata"`
}

// postRequest carries the documents the poster writes from.
type postRequest struct {
	Agent        string
	Guide        string
	Rules        string
	Today        string
	OutputFormat string
}

// Bind implements promptbuilder.Bindable.
func (r *postRequest) Bind(p *promptbuilder.Prompt) (*promptbuilder.Prompt, error) {
	p, err := p.BindCodeBlock("guide", "markdown", r.Guide)
	if err != nil {
		return nil, err
	}
	if p, err = p.BindCodeBlock("rules", "markdown", r.Rules); err != nil {
		return nil, err
	}
	if p, err = p.BindXML("today", today{Date: r.Today}); err != nil {
		return nil, err
	}
	return p.BindCodeBlock("output_format", "json", r.OutputFormat)
}

// BindSystem implements executor.SystemBindable.
func (r *postRequest) BindSystem(p *promptbuilder.Prompt) (*promptbuilder.Prompt, error) {
	return p.BindXML("identity", newIdentity(r.Agent))
}

type postSummary struct {
	XMLName xml.Name `xml:"post"`
	Number  int      `xml:"number,attr"`
	Title   string   `xml:"title"`
}

type commentList struct {
	XMLName  xml.Name `xml:"comments"`
	Comments []string `xml:"comment"`
}

// commentRequest carries the post being discussed and the discussion so
// far, both truncated.
type commentRequest struct {
	Agent    string
	Number   int
	Title    string
	Content  string
	Comments []string
}

// Bind implements promptbuilder.Bindable.
func (r *commentRequest) Bind(p *promptbuilder.Prompt) (*promptbuilder.Prompt, error) {
	p, err := p.BindXML("post", postSummary{Number: r.Number, Title: r.Title})
	if err != nil {
		return nil, err
	}
	if p, err = p.BindCodeBlock("content", "markdown", r.Content); err != nil {
		return nil, err
	}
	return p.BindXML("comments", commentList{Comments: r.Comments})
}

// BindSystem implements executor.SystemBindable.
func (r *commentRequest) BindSystem(p *promptbuilder.Prompt) (*promptbuilder.Prompt, error) {
	return p.BindXML("identity", newIdentity(r.Agent))
}
