package epg

import (
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/teamarr/teamarr/internal/model"
)

// xmltvTV is the document root.
type xmltvTV struct {
	XMLName    xml.Name         `xml:"tv"`
	Channels   []xmltvChannel   `xml:"channel"`
	Programmes []xmltvProgramme `xml:"programme"`
}

type xmltvChannel struct {
	ID          string `xml:"id,attr"`
	DisplayName string `xml:"display-name"`
	Icon        *xmltvIcon `xml:"icon,omitempty"`
}

type xmltvIcon struct {
	Src string `xml:"src,attr"`
}

type xmltvProgramme struct {
	Start       string   `xml:"start,attr"`
	Stop        string   `xml:"stop,attr"`
	Channel     string   `xml:"channel,attr"`
	Title       string   `xml:"title"`
	SubTitle    string   `xml:"sub-title,omitempty"`
	Desc        string   `xml:"desc,omitempty"`
	Category    []string `xml:"category,omitempty"`
	Date        string   `xml:"date,omitempty"`
	Live        *struct{} `xml:"live,omitempty"`
	New         *struct{} `xml:"new,omitempty"`
}

// ChannelMeta is the display info needed for one channel's <channel> block.
type ChannelMeta struct {
	ID          string
	DisplayName string
	IconURL     string
}

// EmitOptions controls optional XMLTV tags (§4.6.1).
type EmitOptions struct {
	EmitLiveNewTags bool
}

// WriteXMLTV writes one XML document for the given channels and their
// programmes. Programmes are grouped by channel and sorted by start
// ascending within each channel. <live/>/<new/> are only ever written for
// real events, never filler, and only when opts.EmitLiveNewTags is set.
func WriteXMLTV(w io.Writer, channels []ChannelMeta, programmesByChannel map[string][]model.Programme, opts EmitOptions) error {
	doc := xmltvTV{}
	for _, ch := range channels {
		c := xmltvChannel{ID: ch.ID, DisplayName: ch.DisplayName}
		if ch.IconURL != "" {
			c.Icon = &xmltvIcon{Src: ch.IconURL}
		}
		doc.Channels = append(doc.Channels, c)

		progs := append([]model.Programme(nil), programmesByChannel[ch.ID]...)
		sort.SliceStable(progs, func(i, j int) bool { return progs[i].Start.Before(progs[j].Start) })

		for _, p := range progs {
			xp := xmltvProgramme{
				Start:    formatXMLTVTime(p.Start),
				Stop:     formatXMLTVTime(p.Stop),
				Channel:  ch.ID,
				Title:    p.Title,
				SubTitle: p.Subtitle,
				Desc:     p.Description,
				Category: p.Categories,
				Date:     p.Start.Format("20060102"),
			}
			if opts.EmitLiveNewTags && !p.IsFiller {
				if p.Live {
					xp.Live = &struct{}{}
				}
				if p.New {
					xp.New = &struct{}{}
				}
			}
			doc.Programmes = append(doc.Programmes, xp)
		}
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("epg: encode xmltv: %w", err)
	}
	return nil
}

func formatXMLTVTime(t time.Time) string {
	return t.UTC().Format("20060102150405 +0000")
}
