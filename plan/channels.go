/*
Package plan provides the media-plan domain model on top of the engine.

PURPOSE:
  Where the engine package is channel-agnostic, this package defines the
  concrete media-buying domain: the channel set an agency plans across,
  each channel's display label, report group and allocation traits, the
  ad-serving rate cards, and the campaign/line-item records bursts are
  sourced from.

CHANNELS:
  Nineteen channel types cover broadcast, print, outdoor, digital and
  service work. Production and consulting are channels for planning
  purposes but their spend is service work, not media; the engine routes
  them into the production total instead of media costs.

SEE ALSO:
  - rates.go:    ad-serving rate cards
  - campaign.go: campaign records and snapshot keys
  - lineitem.go: per-channel line items and burst extraction
*/
package plan

import "github.com/planwell/billing-engine/engine"

// =============================================================================
// CHANNEL SET - The media types a plan allocates across
// =============================================================================

const (
	ChannelMetroTV          engine.Channel = "metro_tv"
	ChannelRegionalTV       engine.Channel = "regional_tv"
	ChannelBVOD             engine.Channel = "bvod"
	ChannelCinema           engine.Channel = "cinema"
	ChannelMetroRadio       engine.Channel = "metro_radio"
	ChannelRegionalRadio    engine.Channel = "regional_radio"
	ChannelDigitalAudio     engine.Channel = "digital_audio"
	ChannelPodcast          engine.Channel = "podcast"
	ChannelPress            engine.Channel = "press"
	ChannelMagazines        engine.Channel = "magazines"
	ChannelOutOfHome        engine.Channel = "out_of_home"
	ChannelDigitalOutOfHome engine.Channel = "digital_out_of_home"
	ChannelDigitalDisplay   engine.Channel = "digital_display"
	ChannelOnlineVideo      engine.Channel = "online_video"
	ChannelSocialMedia      engine.Channel = "social_media"
	ChannelSearch           engine.Channel = "search"
	ChannelEmail            engine.Channel = "email"
	ChannelProduction       engine.Channel = "production"
	ChannelConsulting       engine.Channel = "consulting"
)

// Channels lists every channel in report display order.
var Channels = []engine.Channel{
	ChannelMetroTV,
	ChannelRegionalTV,
	ChannelBVOD,
	ChannelCinema,
	ChannelMetroRadio,
	ChannelRegionalRadio,
	ChannelDigitalAudio,
	ChannelPodcast,
	ChannelPress,
	ChannelMagazines,
	ChannelOutOfHome,
	ChannelDigitalOutOfHome,
	ChannelDigitalDisplay,
	ChannelOnlineVideo,
	ChannelSocialMedia,
	ChannelSearch,
	ChannelEmail,
	ChannelProduction,
	ChannelConsulting,
}

// Labels maps channels to report display headers. The engine treats
// this as opaque lookup data.
var Labels = map[engine.Channel]string{
	ChannelMetroTV:          "Metro TV",
	ChannelRegionalTV:       "Regional TV",
	ChannelBVOD:             "BVOD",
	ChannelCinema:           "Cinema",
	ChannelMetroRadio:       "Metro Radio",
	ChannelRegionalRadio:    "Regional Radio",
	ChannelDigitalAudio:     "Digital Audio",
	ChannelPodcast:          "Podcast",
	ChannelPress:            "Press",
	ChannelMagazines:        "Magazines",
	ChannelOutOfHome:        "Out of Home",
	ChannelDigitalOutOfHome: "Digital Out of Home",
	ChannelDigitalDisplay:   "Digital Display",
	ChannelOnlineVideo:      "Online Video",
	ChannelSocialMedia:      "Social Media",
	ChannelSearch:           "Search",
	ChannelEmail:            "EDM",
	ChannelProduction:       "Production",
	ChannelConsulting:       "Consulting",
}

// Group organises channels for dashboard and MBA document headings.
type Group string

const (
	GroupBroadcast Group = "broadcast"
	GroupAudio     Group = "audio"
	GroupPrint     Group = "print"
	GroupOutdoor   Group = "outdoor"
	GroupDigital   Group = "digital"
	GroupServices  Group = "services"
)

// Groups maps channels to their report group.
var Groups = map[engine.Channel]Group{
	ChannelMetroTV:          GroupBroadcast,
	ChannelRegionalTV:       GroupBroadcast,
	ChannelBVOD:             GroupBroadcast,
	ChannelCinema:           GroupBroadcast,
	ChannelMetroRadio:       GroupAudio,
	ChannelRegionalRadio:    GroupAudio,
	ChannelDigitalAudio:     GroupAudio,
	ChannelPodcast:          GroupAudio,
	ChannelPress:            GroupPrint,
	ChannelMagazines:        GroupPrint,
	ChannelOutOfHome:        GroupOutdoor,
	ChannelDigitalOutOfHome: GroupOutdoor,
	ChannelDigitalDisplay:   GroupDigital,
	ChannelOnlineVideo:      GroupDigital,
	ChannelSocialMedia:      GroupDigital,
	ChannelSearch:           GroupDigital,
	ChannelEmail:            GroupDigital,
	ChannelProduction:       GroupServices,
	ChannelConsulting:       GroupServices,
}

// Traits returns the allocation traits for the full channel set: which
// ad-serving rate class applies, the digital-audio special case, and
// which channels are service work rather than media.
func Traits() map[engine.Channel]engine.ChannelTraits {
	return map[engine.Channel]engine.ChannelTraits{
		ChannelMetroTV:          {RateClass: engine.RateVideo},
		ChannelRegionalTV:       {RateClass: engine.RateVideo},
		ChannelBVOD:             {RateClass: engine.RateVideo},
		ChannelCinema:           {RateClass: engine.RateVideo},
		ChannelMetroRadio:       {RateClass: engine.RateAudio},
		ChannelRegionalRadio:    {RateClass: engine.RateAudio},
		ChannelDigitalAudio:     {RateClass: engine.RateAudio, DigitalAudio: true},
		ChannelPodcast:          {RateClass: engine.RateAudio},
		ChannelPress:            {RateClass: engine.RateImpression},
		ChannelMagazines:        {RateClass: engine.RateImpression},
		ChannelOutOfHome:        {RateClass: engine.RateImpression},
		ChannelDigitalOutOfHome: {RateClass: engine.RateImpression},
		ChannelDigitalDisplay:   {RateClass: engine.RateDisplay},
		ChannelOnlineVideo:      {RateClass: engine.RateVideo},
		ChannelSocialMedia:      {RateClass: engine.RateDisplay},
		ChannelSearch:           {RateClass: engine.RateDisplay},
		ChannelEmail:            {RateClass: engine.RateImpression},
		ChannelProduction:       {Production: true},
		ChannelConsulting:       {Production: true},
	}
}

// Valid reports whether c is a known channel.
func Valid(c engine.Channel) bool {
	_, ok := Labels[c]
	return ok
}
