package middleware

var LevelFor = levelFor
