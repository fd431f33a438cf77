package bot

import (
	"errors"
	"net/http"

	"github.com/bwmarrin/discordgo"
)

// platform adapts a Discord session to the narrow surfaces the roster
// state machine and the notifier need.
type platform struct {
	session *discordgo.Session
}

func newPlatform(session *discordgo.Session) *platform {
	return &platform{session: session}
}

func (p *platform) GrantRole(guildID, userID, roleID string) error {
	return p.session.GuildMemberRoleAdd(guildID, userID, roleID)
}

func (p *platform) RevokeRole(guildID, userID, roleID string) error {
	return p.session.GuildMemberRoleRemove(guildID, userID, roleID)
}

func (p *platform) RemoveReaction(channelID, messageID, emoji, userID string) error {
	return p.session.MessageReactionRemove(channelID, messageID, emoji, userID)
}

func (p *platform) SendDM(userID, text string) error {
	channel, err := p.session.UserChannelCreate(userID)
	if err != nil {
		return err
	}
	_, err = p.session.ChannelMessageSend(channel.ID, text)
	return err
}

func (p *platform) EditMessage(channelID, messageID, text string) error {
	_, err := p.session.ChannelMessageEdit(channelID, messageID, text)
	return err
}

func (p *platform) SendMessage(channelID, text string) (string, error) {
	message, err := p.session.ChannelMessageSend(channelID, text)
	if err != nil {
		return "", err
	}
	return message.ID, nil
}

// isNotFound reports whether err is Discord telling us the object is
// already gone. Teardown treats that as success.
func isNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		return restErr.Response.StatusCode == http.StatusNotFound
	}
	return false
}
