package main

type sessionKey string

// surveyIDSessionKey stores the id of the visitor's survey controller.
const surveyIDSessionKey = sessionKey("surveyID")
