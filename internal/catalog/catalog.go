// Package catalog は睡眠ストーリー、瞑想、環境音シーンの静的カタログを提供する。
// カタログは起動時に1回だけ読み込み、以降は変更しない。
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var embedded []byte

// タグの「すべて」を表す値
const (
	StoryTagAll = "推荐"
	SceneTagAll = "全部"
)

// recentLimit は「最近」に表示するストーリー数。
const recentLimit = 2

// Greeting はホーム画面の挨拶文。
type Greeting struct {
	Label    string `yaml:"label" json:"label"`
	Headline string `yaml:"headline" json:"headline"`
}

// QuickAction はホーム画面のショートカット。
type QuickAction struct {
	Title  string `yaml:"title" json:"title"`
	Action string `yaml:"action" json:"action"`
	Badge  string `yaml:"badge" json:"badge"`
	Icon   string `yaml:"icon" json:"icon"`
}

// Story は睡眠ストーリー1件。
type Story struct {
	ID          int      `yaml:"id" json:"id"`
	Title       string   `yaml:"title" json:"title"`
	Description string   `yaml:"description" json:"description"`
	Duration    string   `yaml:"duration" json:"duration"`
	Cover       string   `yaml:"cover" json:"cover"`
	AudioURL    string   `yaml:"audio_url" json:"audio_url"`
	Category    string   `yaml:"category" json:"category"`
	Tags        []string `yaml:"tags" json:"tags"`
}

// Section はホーム画面のストーリー群。
type Section struct {
	Title string  `json:"title"`
	Items []Story `json:"items"`
}

// Home はホーム画面の表示内容。
type Home struct {
	Greeting     Greeting      `json:"greeting"`
	QuickActions []QuickAction `json:"quick_actions"`
	Sections     []Section     `json:"sections"`
	Highlights   Highlights    `json:"highlights"`
}

// Highlights は各一覧の先頭要素。
type Highlights struct {
	Story      *Story     `json:"story"`
	Meditation *Goal      `json:"meditation"`
	Scene      *Scene     `json:"scene"`
	Preset     *MixPreset `json:"preset"`
}

// StoryList は睡眠ストーリー一覧の応答。
type StoryList struct {
	Items  []Story  `json:"items"`
	Recent []Story  `json:"recent"`
	Tags   []string `json:"tags"`
}

// Goal は瞑想の目的別メニュー。
type Goal struct {
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	Duration    string `yaml:"duration" json:"duration"`
}

// Tool は瞑想の練習ツール。
type Tool struct {
	Type        string `yaml:"type" json:"type"`
	Title       string `yaml:"title" json:"title"`
	Pattern     string `yaml:"pattern" json:"pattern,omitempty"`
	Description string `yaml:"description" json:"description"`
}

// MeditationOverview は瞑想画面の応答。
type MeditationOverview struct {
	Goals          []Goal   `json:"goals"`
	Tools          []Tool   `json:"tools"`
	BreathPatterns []string `json:"breath_patterns"`
	Recent         []Goal   `json:"recent"`
}

// Scene は環境音シーン1件。
type Scene struct {
	ID       string   `yaml:"id" json:"id"`
	Title    string   `yaml:"title" json:"title"`
	Category string   `yaml:"category" json:"category"`
	Cover    string   `yaml:"cover" json:"cover"`
	Tags     []string `yaml:"tags" json:"tags"`
}

// SceneList は環境音シーン一覧の応答。
type SceneList struct {
	Items []Scene  `json:"items"`
	Tags  []string `json:"tags"`
}

// MixPreset は組み込みのミックスプリセット。
type MixPreset struct {
	ID     string   `yaml:"id" json:"id"`
	Name   string   `yaml:"name" json:"name"`
	Layers []string `yaml:"layers" json:"layers"`
}

// document はYAMLファイルの構造。
type document struct {
	Home struct {
		Greeting     Greeting      `yaml:"greeting"`
		QuickActions []QuickAction `yaml:"quick_actions"`
		Sections     []struct {
			Title   string `yaml:"title"`
			Stories []int  `yaml:"stories"`
		} `yaml:"sections"`
	} `yaml:"home"`
	StoryTags  []string `yaml:"story_tags"`
	Stories    []Story  `yaml:"stories"`
	Meditation struct {
		Goals          []Goal   `yaml:"goals"`
		Tools          []Tool   `yaml:"tools"`
		BreathPatterns []string `yaml:"breath_patterns"`
	} `yaml:"meditation"`
	SceneTags  []string    `yaml:"scene_tags"`
	Scenes     []Scene     `yaml:"scenes"`
	MixPresets []MixPreset `yaml:"mix_presets"`
}

// Catalog は読み込み済みのイミュータブルなカタログ。
// 返却するスライスは毎回複製するため、呼び出し側で変更しても影響しない。
type Catalog struct {
	doc        document
	storyByID  map[int]Story
	knownLayer map[string]struct{}
}

// Load はpathのYAMLからカタログを読み込む。pathが空の場合は組み込みのカタログを使う。
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Parse(embedded)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse はYAMLデータを解析してカタログを構築する。
// ID重複や未定義ストーリーへの参照がある場合はエラーを返す。
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c := &Catalog{
		doc:        doc,
		storyByID:  make(map[int]Story, len(doc.Stories)),
		knownLayer: make(map[string]struct{}, len(doc.Scenes)*2),
	}
	for _, s := range doc.Stories {
		if _, dup := c.storyByID[s.ID]; dup {
			return nil, fmt.Errorf("duplicate story id: %d", s.ID)
		}
		c.storyByID[s.ID] = s
	}
	for _, sec := range doc.Home.Sections {
		for _, id := range sec.Stories {
			if _, ok := c.storyByID[id]; !ok {
				return nil, fmt.Errorf("section %q references unknown story %d", sec.Title, id)
			}
		}
	}
	seenScene := make(map[string]struct{}, len(doc.Scenes))
	for _, s := range doc.Scenes {
		if s.ID == "" {
			return nil, fmt.Errorf("scene %q has no id", s.Title)
		}
		if _, dup := seenScene[s.ID]; dup {
			return nil, fmt.Errorf("duplicate scene id: %s", s.ID)
		}
		seenScene[s.ID] = struct{}{}
		c.knownLayer[s.ID] = struct{}{}
		c.knownLayer[s.Title] = struct{}{}
	}
	for _, p := range doc.MixPresets {
		for _, layer := range p.Layers {
			if !c.IsKnownLayer(layer) {
				return nil, fmt.Errorf("preset %q references unknown scene %q", p.ID, layer)
			}
		}
	}

	return c, nil
}

// Home はホーム画面の内容を返す。
func (c *Catalog) Home() Home {
	h := Home{
		Greeting:     c.doc.Home.Greeting,
		QuickActions: slices.Clone(c.doc.Home.QuickActions),
		Sections:     make([]Section, 0, len(c.doc.Home.Sections)),
	}
	for _, sec := range c.doc.Home.Sections {
		items := make([]Story, 0, len(sec.Stories))
		for _, id := range sec.Stories {
			items = append(items, cloneStory(c.storyByID[id]))
		}
		h.Sections = append(h.Sections, Section{Title: sec.Title, Items: items})
	}

	if len(c.doc.Stories) > 0 {
		s := cloneStory(c.doc.Stories[0])
		h.Highlights.Story = &s
	}
	if len(c.doc.Meditation.Goals) > 0 {
		g := c.doc.Meditation.Goals[0]
		h.Highlights.Meditation = &g
	}
	if len(c.doc.Scenes) > 0 {
		s := cloneScene(c.doc.Scenes[0])
		h.Highlights.Scene = &s
	}
	if len(c.doc.MixPresets) > 0 {
		p := clonePreset(c.doc.MixPresets[0])
		h.Highlights.Preset = &p
	}
	return h
}

// Stories はタグに一致するストーリーを返す。タグが空または StoryTagAll の場合は全件。
func (c *Catalog) Stories(tag string) StoryList {
	items := make([]Story, 0, len(c.doc.Stories))
	for _, s := range c.doc.Stories {
		if tag == "" || tag == StoryTagAll || slices.Contains(s.Tags, tag) || s.Category == tag {
			items = append(items, cloneStory(s))
		}
	}

	recent := make([]Story, 0, recentLimit)
	for _, s := range c.doc.Stories[:min(recentLimit, len(c.doc.Stories))] {
		recent = append(recent, cloneStory(s))
	}

	return StoryList{
		Items:  items,
		Recent: recent,
		Tags:   slices.Clone(c.doc.StoryTags),
	}
}

// Story は指定IDのストーリーを返す。
func (c *Catalog) Story(id int) (Story, bool) {
	s, ok := c.storyByID[id]
	if !ok {
		return Story{}, false
	}
	return cloneStory(s), true
}

// Meditation は瞑想画面の内容を返す。
func (c *Catalog) Meditation() MeditationOverview {
	return MeditationOverview{
		Goals:          slices.Clone(c.doc.Meditation.Goals),
		Tools:          slices.Clone(c.doc.Meditation.Tools),
		BreathPatterns: slices.Clone(c.doc.Meditation.BreathPatterns),
		Recent:         []Goal{},
	}
}

// Scenes はタグに一致する環境音シーンを返す。タグが空または SceneTagAll の場合は全件。
func (c *Catalog) Scenes(tag string) SceneList {
	items := make([]Scene, 0, len(c.doc.Scenes))
	for _, s := range c.doc.Scenes {
		if tag == "" || tag == SceneTagAll || slices.Contains(s.Tags, tag) || s.Category == tag {
			items = append(items, cloneScene(s))
		}
	}
	return SceneList{Items: items, Tags: slices.Clone(c.doc.SceneTags)}
}

// Presets は組み込みのミックスプリセットを返す。
func (c *Catalog) Presets() []MixPreset {
	out := make([]MixPreset, 0, len(c.doc.MixPresets))
	for _, p := range c.doc.MixPresets {
		out = append(out, clonePreset(p))
	}
	return out
}

// IsKnownLayer はlayerがシーンのIDまたはタイトルに一致するかを返す。
func (c *Catalog) IsKnownLayer(layer string) bool {
	_, ok := c.knownLayer[strings.TrimSpace(layer)]
	return ok
}

func cloneStory(s Story) Story {
	s.Tags = slices.Clone(s.Tags)
	return s
}

func cloneScene(s Scene) Scene {
	s.Tags = slices.Clone(s.Tags)
	return s
}

func clonePreset(p MixPreset) MixPreset {
	p.Layers = slices.Clone(p.Layers)
	return p
}
