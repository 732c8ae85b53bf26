package bot

const (
	msgAccessDenied = "❌ Access denied. You are not authorized to use this bot."

	msgWelcome = "👋 Welcome to Content Cleaner Bot!\n\n" +
		"🤖 I help you clean media files from metadata and captions.\n\n" +
		"📌 How to use:\n" +
		"• Send me any media file (photo, video, document, audio, sticker)\n" +
		"• I will remove sender info and captions\n" +
		"• Send the cleaned file to your channel or direct messages\n\n" +
		"💡 All media types and albums are supported\n\n" +
		"Use /help for more information."

	msgHelp = "ℹ️ Content Cleaner Bot Help\n\n" +
		"📋 Commands:\n" +
		"/start - Welcome message\n" +
		"/help - Show this help\n" +
		"/stats - Relay statistics\n\n" +
		"🎯 Supported media types:\n" +
		"• 📸 Photos\n" +
		"• 🎥 Videos\n" +
		"• 🎵 Audio and voice messages\n" +
		"• 📄 Documents\n" +
		"• 🎬 GIF animations\n" +
		"• 😀 Stickers\n" +
		"• 🖼 Albums (media groups)\n\n" +
		"⚙️ What the bot does:\n" +
		"1. Receives media file from you\n" +
		"2. Removes sender information\n" +
		"3. Removes captions and metadata\n" +
		"4. Sends the cleaned file\n\n" +
		"✅ File quality is preserved!\n\n" +
		"❓ Issues? Check your bot settings in .env file"

	msgSendMedia = "⚠️ Please send a media file for processing.\n\n" +
		"I can only process media files:\n" +
		"• Photos\n" +
		"• Videos\n" +
		"• Audio\n" +
		"• Documents\n" +
		"• Stickers\n" +
		"• Animations (GIF)\n\n" +
		"Use /help for more information."

	msgUnknownCommand = "Unknown command 🤔"

	msgStatsUnavailable = "📊 Statistics are not available."
)
