package urls

// Documentation URLs shown in troubleshooting tips

// SupervisorAPI documents the Supervisor endpoints and the result/data envelope.
const SupervisorAPI = "https://developers.home-assistant.io/docs/api/supervisor/endpoints"

// AddonAuth explains how add-ons receive the Supervisor token (HASSIO_TOKEN).
const AddonAuth = "https://developers.home-assistant.io/docs/add-ons/communication"

// LongLivedTokens explains creating a token for use outside an add-on.
const LongLivedTokens = "https://www.home-assistant.io/docs/authentication/#your-account-profile"

// Zeroconf covers how Home Assistant advertises itself over mDNS.
const Zeroconf = "https://www.home-assistant.io/integrations/zeroconf/"
